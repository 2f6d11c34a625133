// Package store defines the content-addressed object store that holds
// published documents. The registry records only a document's checksum and
// its locator here; the bytes themselves never touch the ledger.
package store

import "github.com/ipfs/go-cid"

// ObjectStore is a minimal content-addressed document store.
//
// Contract:
//   - Put MUST be idempotent.
//   - Stored documents MUST be immutable.
//   - Locators MUST be derived from the bytes written (callers supply
//     canonical bytes).
//   - Get MUST return ErrNotFound when the locator is absent.
type ObjectStore interface {
	Put(document []byte) (cid.Cid, error)
	Get(locator cid.Cid) ([]byte, error)
	Has(locator cid.Cid) bool
}
