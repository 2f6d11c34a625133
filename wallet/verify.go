package wallet

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

var ErrBadSignature = errors.New("wallet: signature did not verify")

// Verify checks a base64 signature over sha256(message) against the public
// key embedded in address. A nil return means the signature is valid;
// ErrBadSignature and encoding errors are both verification failures.
func Verify(address, signature string, message []byte) error {
	alg, pub, err := publicKeyBytes(address)
	if err != nil {
		return err
	}
	sig, err := decodeBase64(signature)
	if err != nil {
		return fmt.Errorf("wallet: invalid signature encoding: %w", err)
	}
	digest := sha256.Sum256(message)

	switch alg {
	case Ed25519:
		if len(sig) != ed25519.SignatureSize {
			return errors.New("wallet: invalid ed25519 signature length")
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest[:], sig) {
			return ErrBadSignature
		}
		return nil
	case Dilithium3:
		if len(sig) != mode3.SignatureSize {
			return errors.New("wallet: invalid dilithium3 signature length")
		}
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("wallet: invalid dilithium3 public key: %w", err)
		}
		if !mode3.Verify(&pk, digest[:], sig) {
			return ErrBadSignature
		}
		return nil
	default:
		return fmt.Errorf("wallet: unsupported algorithm %q", alg)
	}
}

// CheckAddress reports whether address is a well-formed identity string.
func CheckAddress(address string) error {
	_, _, err := publicKeyBytes(address)
	return err
}

func publicKeyBytes(address string) (Algorithm, []byte, error) {
	algStr, enc, ok := strings.Cut(address, ":")
	if !ok {
		return "", nil, errors.New("wallet: invalid address encoding")
	}
	pub, err := decodeBase64(enc)
	if err != nil {
		return "", nil, fmt.Errorf("wallet: invalid address base64: %w", err)
	}
	switch Algorithm(algStr) {
	case Ed25519:
		if len(pub) != ed25519.PublicKeySize {
			return "", nil, errors.New("wallet: invalid ed25519 public key length")
		}
		return Ed25519, pub, nil
	case Dilithium3:
		if len(pub) != mode3.PublicKeySize {
			return "", nil, errors.New("wallet: invalid dilithium3 public key length")
		}
		return Dilithium3, pub, nil
	default:
		return "", nil, fmt.Errorf("wallet: unsupported address algorithm %q", algStr)
	}
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
