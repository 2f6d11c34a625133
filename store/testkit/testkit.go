// Package testkit holds the shared conformance suite for ObjectStore
// implementations.
package testkit

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/datatoken/store"
)

// NewStore constructs a fresh, empty store instance for a test. The
// returned store MUST be isolated from other tests.
type NewStore func(t *testing.T) store.ObjectStore

func RunConformance(t *testing.T, newStore NewStore) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		want := []byte(`{"dt":"dt:doc","creator":"org1"}`)

		id, err := s.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := store.Locator(want)
		if err != nil {
			t.Fatalf("Locator failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put locator mismatch: got %s want %s", id, wantID)
		}

		got, err := s.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		s := newStore(t)
		b := []byte("same document")

		id1, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := s.Put(b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		b := []byte("missing document")
		id, err := store.Locator(b)
		if err != nil {
			t.Fatalf("Locator failed: %v", err)
		}

		if s.Has(id) {
			t.Fatalf("Has returned true for missing locator")
		}
		_, err = s.Get(id)
		if !store.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := s.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !s.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefinedLocator", func(t *testing.T) {
		s := newStore(t)
		var undef cid.Cid
		if s.Has(undef) {
			t.Fatalf("Has should be false for undefined locator")
		}
		if _, err := s.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined locator")
		}
	})
}
