// Package compose builds the composition graph: granting child tokens to a
// composite and activating the composite once every declared child agreed.
package compose

import (
	"context"
	"errors"
	"fmt"

	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/lineage"
	"xdao.co/datatoken/registry"
)

var (
	// ErrIncompleteGrant reports activation before every declared child
	// granted the composite.
	ErrIncompleteGrant = errors.New("compose: not every declared child has granted the composite")

	// ErrGraphInconsistency reports an activation child set that differs
	// from the set declared by the composite's document.
	ErrGraphInconsistency = errors.New("compose: child set does not match the declared composition")

	// ErrCompositionCycle is the activation-time acyclicity failure.
	ErrCompositionCycle = lineage.ErrCompositionCycle
)

// Composer sequences grant and activation against the ledger. The tracer's
// document source doubles as the acyclicity check at activation time.
type Composer struct {
	Registry registry.Registry
	Source   lineage.Source
}

// Grant records the authorization edge childDT -> compositeDT. The owner
// wallet must control childDT. Granting an already granted edge is a
// no-op, so concurrent duplicate grants are harmless.
func (c *Composer) Grant(ctx context.Context, childDT, compositeDT dtid.DT, owner registry.Signer) error {
	if err := c.Registry.GrantEdge(ctx, childDT, compositeDT, owner); err != nil {
		return fmt.Errorf("compose: grant %s -> %s: %w", childDT, compositeDT, err)
	}
	return nil
}

// Activate transitions compositeDT from pending to active.
//
// Preconditions, checked in order: childDTs must equal the document's
// declared child set exactly (ErrGraphInconsistency), every child must
// have a recorded grant (ErrIncompleteGrant), and the graph must stay
// acyclic (ErrCompositionCycle). Activating an already active composite
// succeeds without side effects; the ledger is the single source of truth
// for "already active".
func (c *Composer) Activate(ctx context.Context, compositeDT dtid.DT, childDTs []dtid.DT, aggregator registry.Signer) error {
	doc, _, ok, err := c.Source.Document(ctx, compositeDT)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("compose: activate %s: %w", compositeDT, registry.ErrNotFound)
	}
	if !doc.IsComposite() {
		return fmt.Errorf("compose: activate %s: %w", compositeDT, registry.ErrNotComposite)
	}
	if !sameChildSet(doc.ChildDTs, childDTs) {
		return ErrGraphInconsistency
	}

	for _, childDT := range childDTs {
		granted, err := c.Registry.HasEdge(ctx, childDT, compositeDT)
		if err != nil {
			return fmt.Errorf("compose: edge lookup: %w", err)
		}
		if !granted {
			return ErrIncompleteGrant
		}
	}

	// The children were published before the composite, so a cycle can
	// only arise from tampered content; refuse to activate over it.
	tracer := &lineage.Tracer{Source: c.Source}
	if _, err := tracer.Trace(ctx, compositeDT); err != nil {
		if errors.Is(err, lineage.ErrCompositionCycle) {
			return ErrCompositionCycle
		}
		return err
	}

	err = c.Registry.ActivateComposite(ctx, compositeDT, childDTs, aggregator)
	if err == registry.ErrMissingEdge {
		// Lost a race with a revoked or never-recorded edge.
		return ErrIncompleteGrant
	}
	if err != nil {
		return fmt.Errorf("compose: activate %s: %w", compositeDT, err)
	}
	return nil
}

// sameChildSet compares as sets, order insensitive; duplicates on either
// side break equality.
func sameChildSet(declared, offered []dtid.DT) bool {
	if len(declared) != len(offered) {
		return false
	}
	seen := make(map[dtid.DT]bool, len(declared))
	for _, dt := range declared {
		if seen[dt] {
			return false
		}
		seen[dt] = true
	}
	for _, dt := range offered {
		if !seen[dt] {
			return false
		}
		delete(seen, dt)
	}
	return len(seen) == 0
}
