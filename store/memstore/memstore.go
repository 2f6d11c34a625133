// Package memstore provides an in-memory ObjectStore, used by tests and by
// single-process deployments that do not need durability.
package memstore

import (
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/datatoken/store"
)

// Store is a mutex-guarded in-memory object store.
type Store struct {
	mu      sync.RWMutex
	objects map[cid.Cid][]byte
}

var _ store.ObjectStore = (*Store)(nil)

func New() *Store {
	return &Store{objects: make(map[cid.Cid][]byte)}
}

func (s *Store) Put(document []byte) (cid.Cid, error) {
	id, err := store.Locator(document)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, store.ErrInvalidLocator
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.objects[id]; ok {
		if string(existing) != string(document) {
			return cid.Undef, store.ErrImmutable
		}
		return id, nil
	}
	s.objects[id] = append([]byte(nil), document...)
	return id, nil
}

func (s *Store) Get(locator cid.Cid) ([]byte, error) {
	if !locator.Defined() {
		return nil, store.ErrInvalidLocator
	}
	s.mu.RLock()
	b, ok := s.objects[locator]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *Store) Has(locator cid.Cid) bool {
	if !locator.Defined() {
		return false
	}
	s.mu.RLock()
	_, ok := s.objects[locator]
	s.mu.RUnlock()
	return ok
}
