// Package ipfs provides an ObjectStore backed by the local Kubo "ipfs" CLI.
//
// This is an optional adapter. The core library stays storage-provider
// agnostic; any external store can integrate by implementing
// store.ObjectStore.
//
// Properties:
//   - Offline: operates on the local IPFS repo; no daemon required.
//   - Deterministic: validates bytes against the requested locator.
//   - Best-effort: relies on an external "ipfs" binary.
//
// Locator contract: CIDv1 raw + sha2-256, matching store.Locator.
package ipfs

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/datatoken/store"
)

type Store struct {
	bin string
	env []string
}

var _ store.ObjectStore = (*Store)(nil)

type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string
	// Env optionally overrides the command environment (e.g. to set
	// IPFS_PATH). If nil, the process environment is used.
	Env []string
}

func New(opts Options) *Store {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	return &Store{bin: bin, env: opts.Env}
}

func (s *Store) Put(document []byte) (cid.Cid, error) {
	id, err := store.Locator(document)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, store.ErrInvalidLocator
	}

	// Store as a raw block with explicit parameters so the CID matches the
	// locator contract.
	out, err := s.run(document,
		"block", "put",
		"--quiet",
		"--format=raw",
		"--mhtype=sha2-256",
		"--mhlen=32",
		"--cid-version=1",
		"/dev/stdin",
	)
	if err != nil {
		return cid.Undef, err
	}

	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return cid.Undef, fmt.Errorf("ipfs: unexpected block put output: %w", err)
	}
	if got.String() != id.String() {
		return cid.Undef, store.ErrLocatorMismatch
	}
	return id, nil
}

func (s *Store) Get(locator cid.Cid) ([]byte, error) {
	if !locator.Defined() {
		return nil, store.ErrInvalidLocator
	}

	out, err := s.run(nil, "block", "get", locator.String())
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	got, herr := store.Locator(out)
	if herr != nil {
		return nil, herr
	}
	if got.String() != locator.String() {
		return nil, store.ErrLocatorMismatch
	}
	return out, nil
}

func (s *Store) Has(locator cid.Cid) bool {
	if !locator.Defined() {
		return false
	}
	_, err := s.run(nil, "block", "stat", locator.String())
	return err == nil
}

func (s *Store) run(stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.Command(s.bin, args...)
	if s.env != nil {
		cmd.Env = s.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		msg := strings.TrimSpace(string(ee.Stderr))
		if msg == "" {
			return nil, fmt.Errorf("ipfs: %v", err)
		}
		return nil, fmt.Errorf("ipfs: %s", msg)
	}
	return nil, err
}

func isLikelyNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "block not found")
}
