// Package optemplate implements operation template documents.
//
// A template publishes an operation (source text) together with the set of
// parameters it accepts. Leaf services reference a template and declare a
// constraint; the constraint's keys must be a subset of the template's
// accepted parameters.
package optemplate

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"

	"xdao.co/datatoken/dtid"
)

// ChecksumType names the hash algorithm used for template checksums.
const ChecksumType = "sha3-256"

// Template is one published operation template.
type Template struct {
	TID       dtid.DT  `json:"tid"`
	Name      string   `json:"name"`
	Operation string   `json:"operation"`
	Params    []string `json:"params"`
	Checksum  string   `json:"checksum,omitempty"`
}

// Build assembles a template: assigns a fresh identifier, normalizes the
// parameter list (sorted, deduplicated) and computes the checksum.
func Build(name, operation string, params []string) (*Template, error) {
	if name == "" {
		return nil, errors.New("optemplate: name is required")
	}
	if operation == "" {
		return nil, errors.New("optemplate: operation source is required")
	}

	norm := append([]string(nil), params...)
	sort.Strings(norm)
	out := norm[:0]
	for i, p := range norm {
		if p == "" {
			return nil, errors.New("optemplate: empty parameter name")
		}
		if i > 0 && norm[i-1] == p {
			continue
		}
		out = append(out, p)
	}

	tid, err := dtid.New()
	if err != nil {
		return nil, err
	}
	t := &Template{TID: tid, Name: name, Operation: operation, Params: out}

	sum, err := checksum(t)
	if err != nil {
		return nil, err
	}
	t.Checksum = sum
	return t, nil
}

// Accepts reports whether every constraint key is an accepted parameter.
func (t *Template) Accepts(constraint map[string]string) bool {
	if len(constraint) == 0 {
		return true
	}
	accepted := make(map[string]bool, len(t.Params))
	for _, p := range t.Params {
		accepted[p] = true
	}
	for key := range constraint {
		if !accepted[key] {
			return false
		}
	}
	return true
}

// VerifyChecksum recomputes the template checksum and compares it to
// expected.
func VerifyChecksum(t *Template, expected string) bool {
	if expected == "" {
		return false
	}
	sum, err := checksum(t)
	if err != nil {
		return false
	}
	return sum == expected
}

func checksum(t *Template) (string, error) {
	shadow := *t
	shadow.Checksum = ""
	b, err := json.Marshal(&shadow)
	if err != nil {
		return "", fmt.Errorf("optemplate: canonical serialization failed: %w", err)
	}
	sum := sha3.Sum256(b)
	return ChecksumType + ":" + hex.EncodeToString(sum[:]), nil
}

// Encode serializes the template for storage.
func Encode(t *Template) ([]byte, error) {
	return json.Marshal(t)
}

// Decode parses a stored template. Unknown fields are rejected.
func Decode(data []byte) (*Template, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var t Template
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("optemplate: malformed template: %w", err)
	}
	return &t, nil
}
