package store

import (
	"errors"

	"github.com/ipfs/go-cid"
)

// FallbackStore provides deterministic, ordered read fallback across
// multiple adapters. Retrieval order is the slice order; callers MUST
// supply a fixed order so the strategy stays explicit and reproducible.
//
// Put writes only to the first adapter.
type FallbackStore struct {
	Adapters []ObjectStore
}

var _ ObjectStore = (*FallbackStore)(nil)

func (m FallbackStore) Put(document []byte) (cid.Cid, error) {
	if len(m.Adapters) == 0 {
		return cid.Undef, errors.New("store: FallbackStore has no adapters")
	}
	return m.Adapters[0].Put(document)
}

func (m FallbackStore) Get(locator cid.Cid) ([]byte, error) {
	sawNotFound := false
	for _, s := range m.Adapters {
		b, err := s.Get(locator)
		if err == nil {
			return b, nil
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

func (m FallbackStore) Has(locator cid.Cid) bool {
	for _, s := range m.Adapters {
		if s.Has(locator) {
			return true
		}
	}
	return false
}
