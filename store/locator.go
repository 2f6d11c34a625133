package store

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Locator derives the content locator for a document: an IPFS-compatible
// CIDv1 using the "raw" multicodec and a sha2-256 multihash.
func Locator(document []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(document, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// LocatorString is Locator rendered as a string, or "" when derivation
// fails (only possible for invalid multihash parameters, which the fixed
// arguments rule out).
func LocatorString(document []byte) string {
	id, err := Locator(document)
	if err != nil {
		return ""
	}
	return id.String()
}

// ParseLocator converts the string form back to a locator.
func ParseLocator(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil || !id.Defined() {
		return cid.Undef, ErrInvalidLocator
	}
	return id, nil
}
