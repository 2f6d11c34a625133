package ddo

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/crypto/sha3"
)

// ChecksumType names the hash algorithm used for proof checksums.
const ChecksumType = "sha3-256"

// CanonicalBytes returns the canonical serialization the proof checksum is
// computed over: the document with the proof cleared, encoded as
// deterministic JSON (fixed field order, lexicographically sorted map keys,
// no insignificant whitespace).
func CanonicalBytes(d *DDO) ([]byte, error) {
	if d == nil {
		return nil, newError(KindCanonical, "DT-CANON-001", "nil document")
	}
	shadow := *d
	shadow.Proof = nil
	b, err := json.Marshal(&shadow)
	if err != nil {
		return nil, wrapError(KindCanonical, "DT-CANON-002", "canonical serialization failed", err)
	}
	return b, nil
}

// Checksum computes the canonical checksum string, "sha3-256:<hex>".
func Checksum(d *DDO) (string, error) {
	b, err := CanonicalBytes(d)
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(b)
	return ChecksumType + ":" + hex.EncodeToString(sum[:]), nil
}

// CreateProof computes and attaches the proof. The document must already
// carry its token identifier; proofs are immutable once created.
func CreateProof(d *DDO) error {
	if !d.DT.Defined() {
		return newError(KindCanonical, "DT-CANON-011", "proof requires an assigned token identifier")
	}
	if d.Proof != nil {
		return newError(KindCanonical, "DT-CANON-012", "proof already created")
	}
	sum, err := Checksum(d)
	if err != nil {
		return err
	}
	d.Proof = &Proof{
		Type:     ChecksumType,
		Created:  time.Now().UTC().Format(time.RFC3339),
		Checksum: sum,
	}
	return nil
}

// VerifyChecksum recomputes the canonical checksum of d and compares it to
// expected. This is the sole tamper-detection mechanism: the registry never
// stores the document body, only its checksum.
func VerifyChecksum(d *DDO, expected string) bool {
	if expected == "" {
		return false
	}
	sum, err := Checksum(d)
	if err != nil {
		return false
	}
	return sum == expected
}

// Encode serializes the full document, proof included, for storage.
func Encode(d *DDO) ([]byte, error) {
	if d == nil {
		return nil, newError(KindCanonical, "DT-CANON-001", "nil document")
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, wrapError(KindCanonical, "DT-CANON-003", "document serialization failed", err)
	}
	return b, nil
}

// Decode parses a stored document. Unknown fields are rejected: a retrieved
// document must round-trip to the exact canonical form its checksum covers.
func Decode(data []byte) (*DDO, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var d DDO
	if err := dec.Decode(&d); err != nil {
		return nil, wrapError(KindParse, "DT-PARSE-001", "malformed document", err)
	}
	if dec.More() {
		return nil, newError(KindParse, "DT-PARSE-002", "trailing data after document")
	}
	return &d, nil
}
