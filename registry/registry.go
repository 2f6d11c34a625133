// Package registry defines the ledger that durably mints token ownership
// and records composition grants. The ledger never stores document bodies,
// only their checksums and object-store locators; consumers must re-verify
// any retrieved document against the recorded checksum.
package registry

import (
	"context"

	"xdao.co/datatoken/dtid"
)

// Signer is the capability needed to authorize a ledger write. Wallets
// satisfy it locally; remote transports re-establish authenticity by
// verifying an explicit signature envelope instead.
type Signer interface {
	Address() string
	Sign(message []byte) (string, error)
}

// State is the lifecycle state of a composite token. Leaf tokens are
// active from the moment they are minted.
type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
)

// Record is the ledger's view of one token.
type Record struct {
	Owner    string
	Issuer   string
	IsLeaf   bool
	Checksum string
	Locator  string
	State    State
}

// Entry pairs a token identifier with its record, for enumeration.
type Entry struct {
	DT     dtid.DT
	Record Record
}

// TemplateRecord is the ledger's view of one published operation template.
type TemplateRecord struct {
	Issuer   string
	Checksum string
	Locator  string
}

// Registry is the ledger contract surface the orchestration layer consumes.
//
// All calls may touch a network: transient transport failures surface as
// errors distinct from the negative sentinel outcomes below, and must never
// be coerced into "not found" or "no edge".
type Registry interface {
	// MintToken registers a new token. The document must already be
	// durably stored under locator before minting.
	MintToken(ctx context.Context, dt dtid.DT, owner string, isLeaf bool, checksum, locator string, signer Signer) error

	// GrantEdge records the authorization edge child -> composite.
	// The signer must own the child token. Idempotent.
	GrantEdge(ctx context.Context, childDT, compositeDT dtid.DT, signer Signer) error

	// ActivateComposite transitions a composite token to active once every
	// listed child has a recorded edge. Activating an active token is a
	// no-op. The signer must own the composite token.
	ActivateComposite(ctx context.Context, compositeDT dtid.DT, childDTs []dtid.DT, signer Signer) error

	// AvailableTokens enumerates all minted tokens in a stable order.
	AvailableTokens(ctx context.Context) ([]Entry, error)

	// TokenRecord returns the record for dt, or ErrNotFound.
	TokenRecord(ctx context.Context, dt dtid.DT) (Record, error)

	// HasEdge reports whether the grant edge from -> to is recorded.
	HasEdge(ctx context.Context, from, to dtid.DT) (bool, error)
}

// TemplateIndex registers published operation templates.
type TemplateIndex interface {
	RegisterTemplate(ctx context.Context, tid dtid.DT, checksum, locator string, signer Signer) error
	Template(ctx context.Context, tid dtid.DT) (TemplateRecord, error)
}

// Directory maps issuer addresses to registered enterprise names.
type Directory interface {
	RegisterEnterprise(ctx context.Context, address, name, description string, signer Signer) error
	EnterpriseName(ctx context.Context, address string) (string, error)
}
