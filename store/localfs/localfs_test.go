package localfs

import (
	"os"
	"testing"

	"xdao.co/datatoken/store"
	"xdao.co/datatoken/store/testkit"
)

func TestLocalFSConformance(t *testing.T) {
	testkit.RunConformance(t, func(t *testing.T) store.ObjectStore {
		t.Helper()
		s, err := New(t.TempDir())
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return s
	})
}

func TestLocalFSRejectsMutationByOverwrite(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	orig := []byte("original")
	id, err := s.Put(orig)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Corrupt the stored object out-of-band.
	path := s.pathFor(id)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("corrupted"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	// Get must detect the hash mismatch.
	if _, err := s.Get(id); err != store.ErrLocatorMismatch {
		t.Fatalf("Get mismatch: got %v want %v", err, store.ErrLocatorMismatch)
	}

	// Put must not "repair" or overwrite the corrupted object.
	if _, err := s.Put(orig); err != store.ErrImmutable {
		t.Fatalf("Put after corruption: got %v want %v", err, store.ErrImmutable)
	}
}

func TestLocalFSRequiresRoot(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatalf("New with empty root should fail")
	}
}
