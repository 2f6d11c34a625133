package wallet

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"
)

func TestEd25519SignVerify(t *testing.T) {
	w, err := NewEd25519(rand.Reader)
	if err != nil {
		t.Fatalf("NewEd25519: %v", err)
	}
	if !strings.HasPrefix(w.Address(), "ed25519:") {
		t.Fatalf("address format: %q", w.Address())
	}

	msg := []byte(w.Address() + "dt:subject")
	sig, err := w.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(w.Address(), sig, msg); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := Verify(w.Address(), sig, []byte("other message")); err == nil {
		t.Fatalf("Verify must fail for a different message")
	}
}

func TestDilithium3SignVerify(t *testing.T) {
	w, err := NewDilithium3(rand.Reader)
	if err != nil {
		t.Fatalf("NewDilithium3: %v", err)
	}
	if !strings.HasPrefix(w.Address(), "dilithium3:") {
		t.Fatalf("address format: %q", w.Address())
	}

	msg := []byte("authorize")
	sig, err := w.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := Verify(w.Address(), sig, msg); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := Verify(w.Address(), sig, []byte("tampered")); err == nil {
		t.Fatalf("Verify must fail for a different message")
	}
}

func TestVerifyRejectsMalformedInputs(t *testing.T) {
	w, err := NewEd25519(rand.Reader)
	if err != nil {
		t.Fatalf("NewEd25519: %v", err)
	}
	msg := []byte("msg")
	sig, err := w.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if err := Verify("no-colon-address", sig, msg); err == nil {
		t.Fatalf("expected error for malformed address")
	}
	if err := Verify("rsa:AAAA", sig, msg); err == nil {
		t.Fatalf("expected error for unsupported algorithm")
	}
	if err := Verify(w.Address(), "!!not-base64!!", msg); err == nil {
		t.Fatalf("expected error for malformed signature")
	}
}

func TestDeterministicSeedDerivation(t *testing.T) {
	seed := bytes.Repeat([]byte{0x42}, 32)
	w1, err := NewEd25519FromSeed(seed)
	if err != nil {
		t.Fatalf("NewEd25519FromSeed: %v", err)
	}
	w2, err := NewEd25519FromSeed(seed)
	if err != nil {
		t.Fatalf("NewEd25519FromSeed: %v", err)
	}
	if w1.Address() != w2.Address() {
		t.Fatalf("same seed must yield the same address")
	}
	if _, err := NewEd25519FromSeed([]byte("short")); err == nil {
		t.Fatalf("short seed must be rejected")
	}
}

func TestKeyStoreRoundTrip(t *testing.T) {
	ks, err := OpenKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("OpenKeyStore: %v", err)
	}
	seed := bytes.Repeat([]byte{0x07}, 32)

	addr, _, err := ks.Save("org1", seed, false)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, _, err := ks.Save("org1", seed, false); err == nil {
		t.Fatalf("Save without overwrite must not clobber an existing key")
	}

	w, err := ks.Load("org1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w.Address() != addr {
		t.Fatalf("address mismatch after reload")
	}

	names, err := ks.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(names) != 1 || names[0] != "org1" {
		t.Fatalf("List: got %v", names)
	}
}
