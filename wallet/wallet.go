// Package wallet implements signing identities for token owners, issuers
// and aggregators.
//
// An address is the identity string "ed25519:<base64>" or
// "dilithium3:<base64>" over the raw public key. Signatures are base64 and
// are always computed over sha256(message).
package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

// Algorithm names a supported signature scheme.
type Algorithm string

const (
	Ed25519    Algorithm = "ed25519"
	Dilithium3 Algorithm = "dilithium3"
)

// Wallet holds a private key and exposes the corresponding address.
type Wallet struct {
	alg     Algorithm
	address string

	edPriv ed25519.PrivateKey
	pqPriv *mode3.PrivateKey
}

// NewEd25519 generates a fresh ed25519 wallet from r.
func NewEd25519(r io.Reader) (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return nil, err
	}
	return &Wallet{
		alg:     Ed25519,
		address: string(Ed25519) + ":" + base64.StdEncoding.EncodeToString(pub),
		edPriv:  priv,
	}, nil
}

// NewEd25519FromSeed derives a wallet deterministically from a 32-byte seed.
func NewEd25519FromSeed(seed []byte) (*Wallet, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("wallet: seed must be %d bytes", ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Wallet{
		alg:     Ed25519,
		address: string(Ed25519) + ":" + base64.StdEncoding.EncodeToString(pub),
		edPriv:  priv,
	}, nil
}

// NewDilithium3 generates a fresh post-quantum wallet from r.
func NewDilithium3(r io.Reader) (*Wallet, error) {
	pub, priv, err := mode3.GenerateKey(r)
	if err != nil {
		return nil, err
	}
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &Wallet{
		alg:     Dilithium3,
		address: string(Dilithium3) + ":" + base64.StdEncoding.EncodeToString(pubBytes),
		pqPriv:  priv,
	}, nil
}

// Address returns the wallet's identity string.
func (w *Wallet) Address() string { return w.address }

// Algorithm returns the wallet's signature scheme.
func (w *Wallet) Algorithm() Algorithm { return w.alg }

// Sign returns a base64 signature over sha256(message).
func (w *Wallet) Sign(message []byte) (string, error) {
	if w == nil {
		return "", errors.New("wallet: nil wallet")
	}
	digest := sha256.Sum256(message)
	switch w.alg {
	case Ed25519:
		sig := ed25519.Sign(w.edPriv, digest[:])
		return base64.StdEncoding.EncodeToString(sig), nil
	case Dilithium3:
		sig := make([]byte, mode3.SignatureSize)
		mode3.SignTo(w.pqPriv, digest[:], sig)
		return base64.StdEncoding.EncodeToString(sig), nil
	default:
		return "", fmt.Errorf("wallet: unsupported algorithm %q", w.alg)
	}
}
