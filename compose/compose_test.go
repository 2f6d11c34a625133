package compose

import (
	"context"
	"testing"

	"xdao.co/datatoken/ddo"
	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/registry"
	"xdao.co/datatoken/registry/memregistry"
	"xdao.co/datatoken/store/memstore"
	"xdao.co/datatoken/verify"
	"xdao.co/datatoken/wallet"
)

type fixture struct {
	composer *Composer
	ledger   *memregistry.Ledger
	store    *memstore.Store
	owner    *wallet.Wallet
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	owner, err := wallet.NewEd25519(nil)
	if err != nil {
		t.Fatalf("NewEd25519: %v", err)
	}
	ledger := memregistry.New()
	objects := memstore.New()
	verifier := &verify.Verifier{Registry: ledger, Templates: ledger, Store: objects}
	return &fixture{
		composer: &Composer{Registry: ledger, Source: verifier},
		ledger:   ledger,
		store:    objects,
		owner:    owner,
		ctx:      context.Background(),
	}
}

func (f *fixture) publishLeaf(t *testing.T) dtid.DT {
	t.Helper()
	tid, err := dtid.New()
	if err != nil {
		t.Fatalf("dtid.New: %v", err)
	}
	doc, err := ddo.Build(
		ddo.Metadata{Name: "leaf", Type: ddo.Dataset},
		[]ddo.Service{{
			Index:      "0",
			Endpoint:   "https://data.example/api",
			Descriptor: ddo.Descriptor{Template: tid},
			Attributes: ddo.Attributes{Price: "10"},
		}},
		f.owner.Address(),
		nil,
	)
	if err != nil {
		t.Fatalf("ddo.Build: %v", err)
	}
	f.publish(t, doc)
	return doc.DT
}

func (f *fixture) publishComposite(t *testing.T, children ...dtid.DT) dtid.DT {
	t.Helper()
	workflow := make(map[dtid.DT]ddo.WorkflowEntry, len(children))
	for _, child := range children {
		workflow[child] = ddo.WorkflowEntry{Service: "0"}
	}
	doc, err := ddo.Build(
		ddo.Metadata{Name: "pipeline", Type: ddo.Operation},
		[]ddo.Service{{
			Index:      "0",
			Endpoint:   "https://agg.example/api",
			Descriptor: ddo.Descriptor{Workflow: workflow},
			Attributes: ddo.Attributes{Price: "5"},
		}},
		f.owner.Address(),
		children,
	)
	if err != nil {
		t.Fatalf("ddo.Build: %v", err)
	}
	f.publish(t, doc)
	return doc.DT
}

func (f *fixture) publish(t *testing.T, doc *ddo.DDO) {
	t.Helper()
	b, err := ddo.Encode(doc)
	if err != nil {
		t.Fatalf("ddo.Encode: %v", err)
	}
	locator, err := f.store.Put(b)
	if err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	err = f.ledger.MintToken(f.ctx, doc.DT, doc.Creator, !doc.IsComposite(), doc.Proof.Checksum, locator.String(), f.owner)
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}
}

func TestActivate_RequiresEveryGrant(t *testing.T) {
	f := newFixture(t)
	a := f.publishLeaf(t)
	b := f.publishLeaf(t)
	c := f.publishComposite(t, a, b)

	if err := f.composer.Activate(f.ctx, c, []dtid.DT{a, b}, f.owner); err != ErrIncompleteGrant {
		t.Fatalf("no grants: got %v, want ErrIncompleteGrant", err)
	}

	if err := f.composer.Grant(f.ctx, a, c, f.owner); err != nil {
		t.Fatalf("Grant a: %v", err)
	}
	if err := f.composer.Activate(f.ctx, c, []dtid.DT{a, b}, f.owner); err != ErrIncompleteGrant {
		t.Fatalf("one grant: got %v, want ErrIncompleteGrant", err)
	}

	if err := f.composer.Grant(f.ctx, b, c, f.owner); err != nil {
		t.Fatalf("Grant b: %v", err)
	}
	if err := f.composer.Activate(f.ctx, c, []dtid.DT{a, b}, f.owner); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	record, err := f.ledger.TokenRecord(f.ctx, c)
	if err != nil {
		t.Fatalf("TokenRecord: %v", err)
	}
	if record.State != registry.StateActive {
		t.Fatalf("state %q after activation", record.State)
	}

	// Observed-once: a second activation succeeds without side effects.
	if err := f.composer.Activate(f.ctx, c, []dtid.DT{a, b}, f.owner); err != nil {
		t.Fatalf("re-activate: %v", err)
	}
}

func TestGrant_Idempotent(t *testing.T) {
	f := newFixture(t)
	a := f.publishLeaf(t)
	c := f.publishComposite(t, a)

	for i := 0; i < 3; i++ {
		if err := f.composer.Grant(f.ctx, a, c, f.owner); err != nil {
			t.Fatalf("grant %d: %v", i, err)
		}
	}
	granted, err := f.ledger.HasEdge(f.ctx, a, c)
	if err != nil || !granted {
		t.Fatalf("edge missing after repeated grants: %v", err)
	}
}

func TestActivate_ChildSetMustMatchDeclaration(t *testing.T) {
	f := newFixture(t)
	a := f.publishLeaf(t)
	b := f.publishLeaf(t)
	c := f.publishComposite(t, a, b)
	for _, child := range []dtid.DT{a, b} {
		if err := f.composer.Grant(f.ctx, child, c, f.owner); err != nil {
			t.Fatalf("Grant: %v", err)
		}
	}

	cases := map[string][]dtid.DT{
		"subset":    {a},
		"duplicate": {a, a},
		"superset":  {a, b, f.publishLeaf(t)},
		"empty":     nil,
	}
	for name, children := range cases {
		if err := f.composer.Activate(f.ctx, c, children, f.owner); err != ErrGraphInconsistency {
			t.Fatalf("%s: got %v, want ErrGraphInconsistency", name, err)
		}
	}
}

func TestActivate_RejectsLeafToken(t *testing.T) {
	f := newFixture(t)
	a := f.publishLeaf(t)
	if err := f.composer.Activate(f.ctx, a, nil, f.owner); err == nil {
		t.Fatal("leaf activation accepted")
	}
}

// cyclicSource serves tampered documents forming a cycle, which no honest
// publish flow can produce.
type cyclicSource struct {
	a, b dtid.DT
}

func (s cyclicSource) Document(ctx context.Context, dt dtid.DT) (*ddo.DDO, registry.Record, bool, error) {
	doc := &ddo.DDO{DT: dt, Metadata: ddo.Metadata{Name: "rigged", Type: ddo.Operation}}
	switch dt {
	case s.a:
		doc.ChildDTs = []dtid.DT{s.b}
	case s.b:
		doc.ChildDTs = []dtid.DT{s.a}
	default:
		return nil, registry.Record{}, false, nil
	}
	return doc, registry.Record{}, true, nil
}

func TestActivate_RejectsTamperedCycle(t *testing.T) {
	f := newFixture(t)
	a := f.publishLeaf(t)
	b := f.publishLeaf(t)

	if err := f.ledger.GrantEdge(f.ctx, b, a, f.owner); err != nil {
		t.Fatalf("GrantEdge: %v", err)
	}

	composer := &Composer{Registry: f.ledger, Source: cyclicSource{a: a, b: b}}
	if err := composer.Activate(f.ctx, a, []dtid.DT{b}, f.owner); err != ErrCompositionCycle {
		t.Fatalf("got %v, want ErrCompositionCycle", err)
	}
}
