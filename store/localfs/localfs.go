// Package localfs provides a filesystem-backed ObjectStore.
//
// Documents are stored immutably and keyed strictly by locator. The
// implementation is offline and deterministic: it never uses the network
// and never depends on wall-clock time.
package localfs

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/datatoken/store"
)

type Store struct {
	root string
}

var _ store.ObjectStore = (*Store)(nil)

// New constructs a filesystem store rooted at root. The directory is
// created if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(document []byte) (cid.Cid, error) {
	id, err := store.Locator(document)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, store.ErrInvalidLocator
	}

	path := s.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := s.Get(id)
			if rerr != nil {
				// Unreadable or corrupted existing object is an
				// immutability violation, not something to repair.
				return cid.Undef, store.ErrImmutable
			}
			if string(existing) != string(document) {
				return cid.Undef, store.ErrImmutable
			}
			return id, nil
		}
		return cid.Undef, err
	}
	defer f.Close()

	if _, err := f.Write(document); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, err
	}

	return id, nil
}

func (s *Store) Get(locator cid.Cid) ([]byte, error) {
	if !locator.Defined() {
		return nil, store.ErrInvalidLocator
	}
	path := s.pathFor(locator)
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	got, err := store.Locator(b)
	if err != nil {
		return nil, err
	}
	if got != locator {
		return nil, store.ErrLocatorMismatch
	}
	return b, nil
}

func (s *Store) Has(locator cid.Cid) bool {
	if !locator.Defined() {
		return false
	}
	_, err := os.Stat(s.pathFor(locator))
	return err == nil
}

func (s *Store) pathFor(locator cid.Cid) string {
	str := locator.String()
	if len(str) < 2 {
		return filepath.Join(s.root, str)
	}
	return filepath.Join(s.root, str[:2], str)
}
