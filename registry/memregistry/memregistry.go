// Package memregistry provides an in-process ledger. It is the reference
// implementation behind the grpc daemon and the test suites: state lives
// under one mutex, grants are idempotent, and activation is observed-once.
package memregistry

import (
	"context"
	"sort"
	"sync"

	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/registry"
	"xdao.co/datatoken/wallet"
)

type edge struct {
	from dtid.DT
	to   dtid.DT
}

type enterprise struct {
	name        string
	description string
}

// Ledger is a mutex-guarded in-memory registry, template index and
// enterprise directory.
type Ledger struct {
	mu          sync.RWMutex
	tokens      map[dtid.DT]registry.Record
	edges       map[edge]bool
	templates   map[dtid.DT]registry.TemplateRecord
	enterprises map[string]enterprise

	// operator, when set, is the only address allowed to register
	// enterprises.
	operator string
}

var (
	_ registry.Registry      = (*Ledger)(nil)
	_ registry.TemplateIndex = (*Ledger)(nil)
	_ registry.Directory     = (*Ledger)(nil)
)

type Option func(*Ledger)

// WithOperator restricts enterprise registration to the given address.
func WithOperator(address string) Option {
	return func(l *Ledger) { l.operator = address }
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		tokens:      make(map[dtid.DT]registry.Record),
		edges:       make(map[edge]bool),
		templates:   make(map[dtid.DT]registry.TemplateRecord),
		enterprises: make(map[string]enterprise),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) MintToken(ctx context.Context, dt dtid.DT, owner string, isLeaf bool, checksum, locator string, signer registry.Signer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !dt.Defined() || owner == "" || checksum == "" || locator == "" {
		return registry.ErrInvalidRecord
	}
	if err := wallet.CheckAddress(owner); err != nil {
		return registry.ErrInvalidRecord
	}
	if signer == nil {
		return registry.ErrInvalidRecord
	}

	state := registry.StateActive
	if !isLeaf {
		state = registry.StatePending
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.tokens[dt]; exists {
		return registry.ErrAlreadyMinted
	}
	l.tokens[dt] = registry.Record{
		Owner:    owner,
		Issuer:   signer.Address(),
		IsLeaf:   isLeaf,
		Checksum: checksum,
		Locator:  locator,
		State:    state,
	}
	return nil
}

func (l *Ledger) GrantEdge(ctx context.Context, childDT, compositeDT dtid.DT, signer registry.Signer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !childDT.Defined() || !compositeDT.Defined() || signer == nil {
		return registry.ErrInvalidRecord
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	child, ok := l.tokens[childDT]
	if !ok {
		return registry.ErrNotFound
	}
	if _, ok := l.tokens[compositeDT]; !ok {
		return registry.ErrNotFound
	}
	if child.Owner != signer.Address() {
		return registry.ErrNotOwner
	}
	// Recording the same edge twice is a no-op, not an error.
	l.edges[edge{from: childDT, to: compositeDT}] = true
	return nil
}

func (l *Ledger) ActivateComposite(ctx context.Context, compositeDT dtid.DT, childDTs []dtid.DT, signer registry.Signer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !compositeDT.Defined() || signer == nil {
		return registry.ErrInvalidRecord
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.tokens[compositeDT]
	if !ok {
		return registry.ErrNotFound
	}
	if rec.IsLeaf {
		return registry.ErrNotComposite
	}
	if rec.Owner != signer.Address() {
		return registry.ErrNotOwner
	}
	if rec.State == registry.StateActive {
		// Observed-once semantics: the ledger is the single source of
		// truth for "already active".
		return nil
	}
	for _, child := range childDTs {
		if !l.edges[edge{from: child, to: compositeDT}] {
			return registry.ErrMissingEdge
		}
	}
	rec.State = registry.StateActive
	l.tokens[compositeDT] = rec
	return nil
}

func (l *Ledger) AvailableTokens(ctx context.Context) ([]registry.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	entries := make([]registry.Entry, 0, len(l.tokens))
	for dt, rec := range l.tokens {
		entries = append(entries, registry.Entry{DT: dt, Record: rec})
	}
	l.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].DT.String() < entries[j].DT.String()
	})
	return entries, nil
}

func (l *Ledger) TokenRecord(ctx context.Context, dt dtid.DT) (registry.Record, error) {
	if err := ctx.Err(); err != nil {
		return registry.Record{}, err
	}
	l.mu.RLock()
	rec, ok := l.tokens[dt]
	l.mu.RUnlock()
	if !ok {
		return registry.Record{}, registry.ErrNotFound
	}
	return rec, nil
}

func (l *Ledger) HasEdge(ctx context.Context, from, to dtid.DT) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.RLock()
	ok := l.edges[edge{from: from, to: to}]
	l.mu.RUnlock()
	return ok, nil
}

func (l *Ledger) RegisterTemplate(ctx context.Context, tid dtid.DT, checksum, locator string, signer registry.Signer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !tid.Defined() || checksum == "" || locator == "" || signer == nil {
		return registry.ErrInvalidRecord
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.templates[tid]; exists {
		return registry.ErrAlreadyMinted
	}
	l.templates[tid] = registry.TemplateRecord{
		Issuer:   signer.Address(),
		Checksum: checksum,
		Locator:  locator,
	}
	return nil
}

func (l *Ledger) Template(ctx context.Context, tid dtid.DT) (registry.TemplateRecord, error) {
	if err := ctx.Err(); err != nil {
		return registry.TemplateRecord{}, err
	}
	l.mu.RLock()
	rec, ok := l.templates[tid]
	l.mu.RUnlock()
	if !ok {
		return registry.TemplateRecord{}, registry.ErrNotFound
	}
	return rec, nil
}

func (l *Ledger) RegisterEnterprise(ctx context.Context, address, name, description string, signer registry.Signer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if address == "" || name == "" || signer == nil {
		return registry.ErrInvalidRecord
	}
	if err := wallet.CheckAddress(address); err != nil {
		return registry.ErrInvalidRecord
	}
	if l.operator != "" && signer.Address() != l.operator {
		return registry.ErrNotOperator
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.enterprises[address] = enterprise{name: name, description: description}
	return nil
}

func (l *Ledger) EnterpriseName(ctx context.Context, address string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	l.mu.RLock()
	e, ok := l.enterprises[address]
	l.mu.RUnlock()
	if !ok {
		return "", registry.ErrNotFound
	}
	return e.name, nil
}
