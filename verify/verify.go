// Package verify implements the stateless checks shared by publishing and
// compute-to-data authorization.
//
// Every check takes its inputs explicitly so the same code runs at publish
// time and again at authorization time. Verdicts are booleans; an error is
// returned only when the registry or object store could not be consulted,
// so callers can tell "denied" apart from "unavailable".
package verify

import (
	"context"
	"fmt"

	"xdao.co/datatoken/ddo"
	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/optemplate"
	"xdao.co/datatoken/registry"
	"xdao.co/datatoken/store"
	"xdao.co/datatoken/wallet"
)

// Verifier bundles the external collaborators the checks consult.
type Verifier struct {
	Registry  registry.Registry
	Templates registry.TemplateIndex
	Store     store.ObjectStore
}

// Services checks every service declared by the document.
//
// For a leaf token each service must reference a published operation
// template whose accepted parameters cover the declared constraint keys.
// For a composite token every workflow entry must reference a declared
// child and a service index that exists on that child's document.
func (v *Verifier) Services(ctx context.Context, d *ddo.DDO) (bool, error) {
	if d.IsComposite() {
		return v.compositeServices(ctx, d, dtid.Undef)
	}
	return v.leafServices(ctx, d)
}

// ServicesFor is the restricted variant used during authorization: only
// workflow entries consuming childDT are checked, and at least one such
// entry must exist.
func (v *Verifier) ServicesFor(ctx context.Context, d *ddo.DDO, childDT dtid.DT) (bool, error) {
	if !d.IsComposite() {
		return false, nil
	}
	return v.compositeServices(ctx, d, childDT)
}

func (v *Verifier) leafServices(ctx context.Context, d *ddo.DDO) (bool, error) {
	for _, svc := range d.Services {
		if !svc.Descriptor.Template.Defined() {
			return false, nil
		}
		record, err := v.Templates.Template(ctx, svc.Descriptor.Template)
		if registry.IsNotFound(err) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("verify: template lookup: %w", err)
		}
		tpl, ok, err := v.fetchTemplate(record)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		if !tpl.Accepts(svc.Descriptor.Constraint) {
			return false, nil
		}
	}
	return true, nil
}

// compositeServices checks workflow entries. When only is defined the
// check is restricted to entries consuming that child, and at least one
// must be present.
func (v *Verifier) compositeServices(ctx context.Context, d *ddo.DDO, only dtid.DT) (bool, error) {
	declared := make(map[dtid.DT]bool, len(d.ChildDTs))
	for _, child := range d.ChildDTs {
		declared[child] = true
	}

	matched := false
	for _, svc := range d.Services {
		for childDT, entry := range svc.Descriptor.Workflow {
			if only.Defined() && childDT != only {
				continue
			}
			matched = true
			if !declared[childDT] {
				return false, nil
			}
			childDoc, ok, err := v.fetchDocument(ctx, childDT)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			if _, ok := childDoc.Service(entry.Service); !ok {
				return false, nil
			}
		}
	}
	if only.Defined() && !matched {
		return false, nil
	}
	return true, nil
}

// Integrity recomputes the canonical checksum of d and compares it to the
// checksum recorded at mint time. This is the sole tamper detection: the
// ledger never stores document bodies.
func (v *Verifier) Integrity(d *ddo.DDO, expectedChecksum string) bool {
	return ddo.VerifyChecksum(d, expectedChecksum)
}

// CheckOwner reports whether address is the recorded owner of dt. An
// unminted token denies; only transport failures return an error.
func (v *Verifier) CheckOwner(ctx context.Context, dt dtid.DT, address string) (bool, error) {
	record, err := v.Registry.TokenRecord(ctx, dt)
	if registry.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("verify: token lookup: %w", err)
	}
	return record.Owner == address, nil
}

// CheckPermission reports whether the grant edge dt -> cdt is recorded.
func (v *Verifier) CheckPermission(ctx context.Context, dt, cdt dtid.DT) (bool, error) {
	granted, err := v.Registry.HasEdge(ctx, dt, cdt)
	if err != nil {
		return false, fmt.Errorf("verify: edge lookup: %w", err)
	}
	return granted, nil
}

// Signature verifies signature by address over message.
func (v *Verifier) Signature(address, signature string, message []byte) bool {
	return wallet.Verify(address, signature, message) == nil
}

// ComputeAuthMessage is the fixed message signed to authorize compute on a
// token: the claimed address immediately followed by the token id. The
// format is byte exact on both sides; any change breaks replay protection.
func ComputeAuthMessage(address string, dt dtid.DT) []byte {
	return []byte(address + dt.String())
}

// JobAuthMessage is the fixed message signed to bind a job execution to an
// authorized composite token.
func JobAuthMessage(address, jobID string) []byte {
	return []byte(address + jobID)
}

// Document resolves dt's document through the registry record and the
// object store, and integrity-checks it against the recorded checksum.
// A missing token, missing document or failed integrity check yields
// ok=false; transport failures return an error.
func (v *Verifier) Document(ctx context.Context, dt dtid.DT) (*ddo.DDO, registry.Record, bool, error) {
	record, err := v.Registry.TokenRecord(ctx, dt)
	if registry.IsNotFound(err) {
		return nil, registry.Record{}, false, nil
	}
	if err != nil {
		return nil, registry.Record{}, false, fmt.Errorf("verify: token lookup: %w", err)
	}
	doc, ok, err := v.resolveRecord(record)
	return doc, record, ok, err
}

func (v *Verifier) fetchDocument(ctx context.Context, dt dtid.DT) (*ddo.DDO, bool, error) {
	doc, _, ok, err := v.Document(ctx, dt)
	return doc, ok, err
}

func (v *Verifier) resolveRecord(record registry.Record) (*ddo.DDO, bool, error) {
	locator, err := store.ParseLocator(record.Locator)
	if err != nil {
		return nil, false, nil
	}
	b, err := v.Store.Get(locator)
	if store.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("verify: document fetch: %w", err)
	}
	doc, err := ddo.Decode(b)
	if err != nil {
		return nil, false, nil
	}
	if !ddo.VerifyChecksum(doc, record.Checksum) {
		return nil, false, nil
	}
	return doc, true, nil
}

func (v *Verifier) fetchTemplate(record registry.TemplateRecord) (*optemplate.Template, bool, error) {
	locator, err := store.ParseLocator(record.Locator)
	if err != nil {
		return nil, false, nil
	}
	b, err := v.Store.Get(locator)
	if store.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("verify: template fetch: %w", err)
	}
	tpl, err := optemplate.Decode(b)
	if err != nil {
		return nil, false, nil
	}
	if !optemplate.VerifyChecksum(tpl, record.Checksum) {
		return nil, false, nil
	}
	return tpl, true, nil
}
