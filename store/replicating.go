package store

import (
	"fmt"

	"github.com/ipfs/go-cid"
)

// NamedStore associates an ObjectStore with a stable backend name, for
// multi-backend orchestration where callers need per-backend reporting.
type NamedStore struct {
	Name  string
	Store ObjectStore
}

// ReplicatingStore writes to all configured backends.
//
// Reads fall back in order. Writes go to all backends and require all
// returned locators to match (otherwise ErrLocatorMismatch is returned).
// Publish paths use this to guarantee a document is durably stored before
// its token is minted.
//
// Use PutAll when you need the per-backend locator mapping.
type ReplicatingStore struct {
	Backends []NamedStore
}

var _ ObjectStore = (*ReplicatingStore)(nil)

// PutAll writes the same document to all backends. It returns the canonical
// locator (computed from the bytes) and a map of backend name -> returned
// locator. If any backend returns a different locator, ErrLocatorMismatch
// is returned.
func (r ReplicatingStore) PutAll(document []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := Locator(document)
	if err != nil {
		return cid.Undef, nil, err
	}
	if !want.Defined() {
		return cid.Undef, nil, ErrInvalidLocator
	}
	if len(r.Backends) == 0 {
		return cid.Undef, nil, fmt.Errorf("store: ReplicatingStore has no backends")
	}

	out := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		if b.Store == nil {
			return cid.Undef, nil, fmt.Errorf("store: nil store for backend %q", b.Name)
		}
		got, err := b.Store.Put(document)
		if err != nil {
			return cid.Undef, nil, err
		}
		out[b.Name] = got
		if got != want {
			return cid.Undef, out, ErrLocatorMismatch
		}
	}
	return want, out, nil
}

func (r ReplicatingStore) Put(document []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(document)
	return id, err
}

func (r ReplicatingStore) Get(locator cid.Cid) ([]byte, error) {
	sawNotFound := false
	for _, b := range r.Backends {
		if b.Store == nil {
			continue
		}
		out, err := b.Store.Get(locator)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			sawNotFound = true
			continue
		}
		return nil, err
	}
	if sawNotFound {
		return nil, ErrNotFound
	}
	return nil, ErrNotFound
}

func (r ReplicatingStore) Has(locator cid.Cid) bool {
	for _, b := range r.Backends {
		if b.Store != nil && b.Store.Has(locator) {
			return true
		}
	}
	return false
}
