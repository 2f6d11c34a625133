// Package dtid defines data token identifiers.
//
// A token identifier is an opaque fixed-width key. The string form is
// "dt:<hex>" and the conversion boundary is strict: anything that is not
// exactly 32 bytes of lowercase hex behind the prefix is rejected.
package dtid

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// Size is the identifier width in bytes.
const Size = 32

// Prefix is the human-readable identifier prefix.
const Prefix = "dt:"

// DT is a data token identifier. The zero value is Undef.
type DT [Size]byte

// Undef is the undefined identifier.
var Undef DT

var ErrInvalid = errors.New("dtid: invalid identifier")

// Generate draws a fresh identifier from r.
func Generate(r io.Reader) (DT, error) {
	var d DT
	if _, err := io.ReadFull(r, d[:]); err != nil {
		return Undef, err
	}
	if !d.Defined() {
		return Undef, errors.New("dtid: generated zero identifier")
	}
	return d, nil
}

// New draws a fresh identifier from crypto/rand.
func New() (DT, error) {
	return Generate(rand.Reader)
}

// Defined reports whether d is not the zero identifier.
func (d DT) Defined() bool { return d != Undef }

func (d DT) String() string {
	if !d.Defined() {
		return ""
	}
	return Prefix + hex.EncodeToString(d[:])
}

// Parse converts the "dt:<hex>" form back to an identifier.
func Parse(s string) (DT, error) {
	if len(s) != len(Prefix)+2*Size || s[:len(Prefix)] != Prefix {
		return Undef, ErrInvalid
	}
	b, err := hex.DecodeString(s[len(Prefix):])
	if err != nil {
		return Undef, fmt.Errorf("dtid: %w: %v", ErrInvalid, err)
	}
	var d DT
	copy(d[:], b)
	if !d.Defined() {
		return Undef, ErrInvalid
	}
	return d, nil
}

// FromBytes converts raw identifier bytes back to a DT.
func FromBytes(b []byte) (DT, error) {
	if len(b) != Size {
		return Undef, ErrInvalid
	}
	var d DT
	copy(d[:], b)
	return d, nil
}

// MarshalText implements encoding.TextMarshaler. Undef marshals to "".
func (d DT) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. "" unmarshals to Undef.
func (d *DT) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Undef
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
