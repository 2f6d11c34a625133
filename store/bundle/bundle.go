// Package bundle exports and imports sets of stored documents as
// deterministic TAR archives, so a token's lineage can be handed to an
// auditor as a single reproducible file.
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"xdao.co/datatoken/store"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping names
	// (typically token identifiers) to locators.
	Labels map[string]cid.Cid
	// IncludeIndex controls whether index.json is included.
	IncludeIndex bool
}

// Export writes a deterministic TAR bundle containing the documents for
// the given locators.
//
// The bundle bytes are deterministic: entry order is lexicographic and TAR
// headers are normalized. All exported bytes are validated against their
// locators.
func Export(w io.Writer, objects store.ObjectStore, locators []cid.Cid, opts ExportOptions) error {
	if objects == nil {
		return fmt.Errorf("bundle: nil object store")
	}

	uniq := make(map[string]cid.Cid, len(locators))
	for _, locator := range locators {
		if !locator.Defined() {
			return store.ErrInvalidLocator
		}
		uniq[locator.String()] = locator
	}

	names := make([]string, 0, len(uniq))
	for s := range uniq {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)

	documents := make([]indexDocument, 0, len(names))
	for _, s := range names {
		locator := uniq[s]
		b, err := objects.Get(locator)
		if err != nil {
			_ = tw.Close()
			return err
		}
		got, err := store.Locator(b)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if got.String() != locator.String() {
			_ = tw.Close()
			return store.ErrLocatorMismatch
		}

		if err := writeFile(tw, "documents/"+locator.String(), b); err != nil {
			_ = tw.Close()
			return err
		}
		documents = append(documents, indexDocument{Locator: locator.String(), Size: len(b)})
	}

	if opts.IncludeIndex {
		idx := indexJSON{
			Version:   FormatVersion,
			CIDCodec:  "raw",
			Multihash: "sha2-256",
			Documents: documents,
		}

		if len(opts.Labels) > 0 {
			keys := make([]string, 0, len(opts.Labels))
			for k := range opts.Labels {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			labels := make([]indexLabel, 0, len(keys))
			for _, k := range keys {
				if k == "" {
					_ = tw.Close()
					return fmt.Errorf("bundle: empty label key")
				}
				v := opts.Labels[k]
				if !v.Defined() {
					_ = tw.Close()
					return store.ErrInvalidLocator
				}
				labels = append(labels, indexLabel{Name: k, Locator: v.String()})
			}
			idx.Labels = labels
		}

		b, err := marshalCanonicalIndexJSON(idx)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, "index.json", b); err != nil {
			_ = tw.Close()
			return err
		}
	}

	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	//
	// Default (false) is fail-closed: unknown entries cause Import to
	// return an error.
	IgnoreUnknown bool
}

// Import reads a bundle from r and imports all documents into objects.
//
// It validates that each document's bytes match both the entry-path
// locator and the recomputed locator.
func Import(r io.Reader, objects store.ObjectStore) error {
	return ImportWithOptions(r, objects, ImportOptions{})
}

func ImportWithOptions(r io.Reader, objects store.ObjectStore, opts ImportOptions) error {
	if objects == nil {
		return fmt.Errorf("bundle: nil object store")
	}

	tr := tar.NewReader(r)
	seen := map[string]struct{}{}

	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := cleanTarPath(h.Name)
		if name == "" {
			return fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, name)
		}

		// Non-authoritative metadata.
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}

		if !strings.HasPrefix(name, "documents/") {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return fmt.Errorf("bundle: unknown entry: %s", name)
		}

		locator, derr := cid.Decode(strings.TrimPrefix(name, "documents/"))
		if derr != nil || !locator.Defined() {
			return store.ErrInvalidLocator
		}

		payload, rerr := io.ReadAll(tr)
		if rerr != nil {
			return rerr
		}
		got, herr := store.Locator(payload)
		if herr != nil {
			return herr
		}
		if got.String() != locator.String() {
			return store.ErrLocatorMismatch
		}

		key := locator.String()
		if _, ok := seen[key]; ok {
			return fmt.Errorf("bundle: duplicate document entry: %s", key)
		}
		seen[key] = struct{}{}

		putLocator, perr := objects.Put(payload)
		if perr != nil {
			return perr
		}
		if putLocator.String() != locator.String() {
			return store.ErrLocatorMismatch
		}
	}
}

type indexJSON struct {
	Version   int             `json:"version"`
	CIDCodec  string          `json:"cidCodec"`
	Multihash string          `json:"multihash"`
	Documents []indexDocument `json:"documents"`
	Labels    []indexLabel    `json:"labels,omitempty"`
}

type indexDocument struct {
	Locator string `json:"locator"`
	Size    int    `json:"size"`
}

type indexLabel struct {
	Name    string `json:"name"`
	Locator string `json:"locator"`
}

func marshalCanonicalIndexJSON(idx indexJSON) ([]byte, error) {
	// indexJSON is composed only of structs + slices; encoding/json will
	// be deterministic.
	b, err := json.Marshal(idx)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
		out = append(out, part)
	}
	return strings.Join(out, "/")
}
