package store_test

import (
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/datatoken/store"
	"xdao.co/datatoken/store/memstore"
)

func TestReplicatingStoreWritesAllBackends(t *testing.T) {
	a := memstore.New()
	b := memstore.New()
	r := store.ReplicatingStore{Backends: []store.NamedStore{
		{Name: "a", Store: a},
		{Name: "b", Store: b},
	}}

	doc := []byte("replicate me")
	id, perBackend, err := r.PutAll(doc)
	if err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	if len(perBackend) != 2 {
		t.Fatalf("expected two backend locators, got %d", len(perBackend))
	}
	if !a.Has(id) || !b.Has(id) {
		t.Fatalf("document must be present in every backend")
	}

	got, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(doc) {
		t.Fatalf("Get bytes mismatch")
	}
}

func TestReplicatingStoreRequiresBackends(t *testing.T) {
	var r store.ReplicatingStore
	if _, err := r.Put([]byte("x")); err == nil {
		t.Fatalf("Put with no backends should fail")
	}
}

func TestFallbackStoreReadsInOrder(t *testing.T) {
	primary := memstore.New()
	secondary := memstore.New()
	m := store.FallbackStore{Adapters: []store.ObjectStore{primary, secondary}}

	doc := []byte("only in secondary")
	id, err := secondary.Put(doc)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(doc) {
		t.Fatalf("Get bytes mismatch")
	}

	// Writes land only in the first adapter.
	id2, err := m.Put([]byte("primary only"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !primary.Has(id2) {
		t.Fatalf("Put must write to the first adapter")
	}
	if secondary.Has(id2) {
		t.Fatalf("Put must not write past the first adapter")
	}
}

func TestFallbackStoreMissEverywhere(t *testing.T) {
	m := store.FallbackStore{Adapters: []store.ObjectStore{memstore.New(), memstore.New()}}
	id, err := store.Locator([]byte("nowhere"))
	if err != nil {
		t.Fatalf("Locator: %v", err)
	}
	if _, err := m.Get(id); !store.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var undef cid.Cid
	if m.Has(undef) {
		t.Fatalf("Has(undef) must be false")
	}
}
