// Package lineage reconstructs the composition ancestry of a token.
//
// The composition graph is a DAG, not a tree: a token reachable through two
// different composites appears once per path in the output, because each
// consumption may carry a different service and constraint. Traversal is
// bounded; content tampered into a cycle fails with ErrCompositionCycle
// instead of looping.
package lineage

import (
	"context"
	"errors"

	"xdao.co/datatoken/ddo"
	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/registry"
)

// ErrCompositionCycle reports a cycle in the composition graph. Activation
// enforces acyclicity, so hitting this during a trace means stored content
// was tampered with after the fact.
var ErrCompositionCycle = errors.New("lineage: composition cycle detected")

// ErrUnresolved reports that the root token's document could not be
// resolved and integrity-checked.
var ErrUnresolved = errors.New("lineage: root document unavailable")

// Source resolves a token's integrity-checked document.
type Source interface {
	Document(ctx context.Context, dt dtid.DT) (*ddo.DDO, registry.Record, bool, error)
}

// Node is one per-path occurrence of a token. ServiceUsed and Constraint
// come from the parent's workflow entry for this child; both are empty on
// the root.
type Node struct {
	DT          dtid.DT
	ServiceUsed string
	Constraint  map[string]string
	Children    []int
}

// Tree is an arena of nodes indexed by position; Nodes[Root] is the root.
// Child order follows the parent document's declared child order.
type Tree struct {
	Nodes []Node
	Root  int
}

// Tracer walks the composition graph through an injected document source.
type Tracer struct {
	Source Source
}

// Trace reconstructs the ancestry tree rooted at rootDT.
//
// Children whose documents cannot be resolved are reported as leaves; the
// token is still part of the ancestry even when its body is unavailable.
func (t *Tracer) Trace(ctx context.Context, rootDT dtid.DT) (*Tree, error) {
	tree := &Tree{}
	onPath := make(map[dtid.DT]bool)
	root, err := t.walk(ctx, tree, rootDT, "", nil, onPath, true)
	if err != nil {
		return nil, err
	}
	tree.Root = root
	return tree, nil
}

func (t *Tracer) walk(ctx context.Context, tree *Tree, dt dtid.DT, serviceUsed string, constraint map[string]string, onPath map[dtid.DT]bool, isRoot bool) (int, error) {
	if onPath[dt] {
		return 0, ErrCompositionCycle
	}

	idx := len(tree.Nodes)
	tree.Nodes = append(tree.Nodes, Node{DT: dt, ServiceUsed: serviceUsed, Constraint: constraint})

	doc, _, ok, err := t.Source.Document(ctx, dt)
	if err != nil {
		return 0, err
	}
	if !ok {
		if isRoot {
			return 0, ErrUnresolved
		}
		return idx, nil
	}
	if !doc.IsComposite() {
		return idx, nil
	}

	onPath[dt] = true
	defer delete(onPath, dt)

	for _, childDT := range doc.ChildDTs {
		childService, childConstraint := workflowFor(doc, childDT)
		childIdx, err := t.walk(ctx, tree, childDT, childService, childConstraint, onPath, false)
		if err != nil {
			return 0, err
		}
		tree.Nodes[idx].Children = append(tree.Nodes[idx].Children, childIdx)
	}
	return idx, nil
}

// workflowFor finds the first workflow entry consuming childDT, scanning
// services in declaration order.
func workflowFor(doc *ddo.DDO, childDT dtid.DT) (string, map[string]string) {
	for _, svc := range doc.Services {
		if entry, ok := svc.Descriptor.Workflow[childDT]; ok {
			return entry.Service, entry.Constraint
		}
	}
	return "", nil
}
