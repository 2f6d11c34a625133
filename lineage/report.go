package lineage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"xdao.co/datatoken/registry"
	"xdao.co/datatoken/store"
	"xdao.co/datatoken/wallet"
)

// A lineage report is the canonical, signable text form of a traced
// ancestry, intended for audit hand-off: a third party can re-trace the
// token, re-render, and compare byte for byte.
const (
	ReportPreamble  = "-----BEGIN DATATOKEN LINEAGE-----"
	ReportPostamble = "-----END DATATOKEN LINEAGE-----"
)

type ReportOptions struct {
	TracedAt time.Time // informational only; zero means omit

	// Signer, when set, signs the report and populates the CRYPTO section.
	Signer registry.Signer
}

// RenderReport produces the canonical report for a traced tree. Node order
// is the traversal order and must not be normalized away; everything else
// is deterministic.
func RenderReport(tree *Tree, opts ReportOptions) ([]byte, error) {
	rendered := Render(tree)
	if rendered == nil {
		return nil, errors.New("lineage: empty tree")
	}

	var sb strings.Builder
	sb.WriteString(ReportPreamble)
	sb.WriteString("\n")

	sb.WriteString("META\n")
	metaLines := []string{
		"Root-DT: " + rendered.DT,
		"Spec: datatoken-lineage-1",
		"Version: 1",
	}
	if !opts.TracedAt.IsZero() {
		metaLines = append(metaLines, "Traced-At: "+opts.TracedAt.UTC().Format(time.RFC3339))
	}
	sort.Strings(metaLines)
	for _, l := range metaLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("LINEAGE\n")
	writeReportNode(&sb, rendered, 0)
	sb.WriteString("\n")

	sb.WriteString("CRYPTO\n")
	if opts.Signer != nil {
		cryptoLines := []string{
			"Auditor-Key: " + opts.Signer.Address(),
			"Hash-Alg: sha256",
			"Signature: 0",
		}
		sort.Strings(cryptoLines)
		for _, l := range cryptoLines {
			sb.WriteString(l)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")

	sb.WriteString(ReportPostamble)
	sb.WriteString("\n")
	out := []byte(sb.String())

	if opts.Signer != nil {
		scope, err := reportSignatureScope(out)
		if err != nil {
			return nil, err
		}
		signature, err := opts.Signer.Sign(scope)
		if err != nil {
			return nil, fmt.Errorf("lineage: report signing failed: %w", err)
		}
		out = []byte(strings.Replace(string(out), "Signature: 0", "Signature: "+signature, 1))
	}
	return out, nil
}

func writeReportNode(sb *strings.Builder, node *RenderedNode, depth int) {
	fmt.Fprintf(sb, "Node: %d %s\n", depth, node.DT)
	if node.ServiceUsed != "" {
		sb.WriteString("Service: ")
		sb.WriteString(node.ServiceUsed)
		sb.WriteString("\n")
	}
	keys := make([]string, 0, len(node.Constraint))
	for k := range node.Constraint {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "Constraint: %s=%s\n", k, node.Constraint[k])
	}
	for _, child := range node.Children {
		writeReportNode(sb, child, depth+1)
	}
}

// VerifyReportSignature verifies a signed report.
//
// Returns (true, nil) when signed and valid, (false, nil) when the report
// carries no CRYPTO fields, and (false, err) for malformed or invalid
// signatures.
func VerifyReportSignature(report []byte) (bool, error) {
	auditorKey, hasKey := singleLine(report, "Auditor-Key: ")
	signature, hasSig := singleLine(report, "Signature: ")
	if !hasKey && !hasSig {
		return false, nil
	}
	if !hasKey || !hasSig {
		return false, errors.New("lineage: incomplete CRYPTO section")
	}
	scope, err := reportSignatureScope(report)
	if err != nil {
		return false, err
	}
	if err := wallet.Verify(auditorKey, signature, scope); err != nil {
		return false, err
	}
	return true, nil
}

// ReportLocator returns the content locator for canonical report bytes.
func ReportLocator(report []byte) (string, error) {
	locator, err := store.Locator(report)
	if err != nil {
		return "", err
	}
	return locator.String(), nil
}

// reportSignatureScope is the report with its Signature line removed.
func reportSignatureScope(report []byte) ([]byte, error) {
	lines := strings.Split(string(report), "\n")
	var out []string
	removed := false
	for _, l := range lines {
		if strings.HasPrefix(l, "Signature: ") {
			if removed {
				return nil, errors.New("lineage: multiple Signature lines")
			}
			removed = true
			continue
		}
		out = append(out, l)
	}
	if !removed {
		return nil, errors.New("lineage: missing Signature line")
	}
	return []byte(strings.Join(out, "\n")), nil
}

func singleLine(report []byte, prefix string) (string, bool) {
	for _, l := range strings.Split(string(report), "\n") {
		if strings.HasPrefix(l, prefix) {
			return strings.TrimPrefix(l, prefix), true
		}
	}
	return "", false
}
