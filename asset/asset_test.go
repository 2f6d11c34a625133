package asset

import (
	"context"
	"testing"

	"xdao.co/datatoken/compose"
	"xdao.co/datatoken/ddo"
	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/jobs"
	"xdao.co/datatoken/optemplate"
	"xdao.co/datatoken/registry/memregistry"
	"xdao.co/datatoken/store/memstore"
	"xdao.co/datatoken/verify"
	"xdao.co/datatoken/wallet"
)

type fixture struct {
	orch       *Orchestrator
	ledger     *memregistry.Ledger
	operator   *wallet.Wallet
	aggregator *wallet.Wallet
	templateID dtid.DT
	ctx        context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	operator := newWallet(t)
	aggregator := newWallet(t)
	ledger := memregistry.New(memregistry.WithOperator(operator.Address()))
	f := &fixture{
		orch: &Orchestrator{
			Registry:  ledger,
			Templates: ledger,
			Directory: ledger,
			Store:     memstore.New(),
			Jobs:      jobs.NewBook(),
		},
		ledger:     ledger,
		operator:   operator,
		aggregator: aggregator,
		ctx:        context.Background(),
	}

	tpl, err := optemplate.Build("select", "SELECT * FROM input", []string{"pred", "columns"})
	if err != nil {
		t.Fatalf("optemplate.Build: %v", err)
	}
	if _, err := f.orch.PublishTemplate(f.ctx, tpl, operator); err != nil {
		t.Fatalf("PublishTemplate: %v", err)
	}
	f.templateID = tpl.TID
	return f
}

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewEd25519(nil)
	if err != nil {
		t.Fatalf("NewEd25519: %v", err)
	}
	return w
}

func (f *fixture) publishLeaf(t *testing.T, owner *wallet.Wallet, name string, kind ddo.AssetType) dtid.DT {
	t.Helper()
	doc, err := ddo.Build(
		ddo.Metadata{Name: name, Type: kind},
		[]ddo.Service{{
			Index:      "0",
			Endpoint:   "https://data.example/api",
			Descriptor: ddo.Descriptor{Template: f.templateID, Constraint: map[string]string{"pred": "region = eu"}},
			Attributes: ddo.Attributes{Price: "10"},
		}},
		owner.Address(),
		nil,
	)
	if err != nil {
		t.Fatalf("ddo.Build %s: %v", name, err)
	}
	if _, err := f.orch.Publish(f.ctx, doc, owner, PublishOptions{}); err != nil {
		t.Fatalf("Publish %s: %v", name, err)
	}
	return doc.DT
}

func (f *fixture) publishComposite(t *testing.T, owner *wallet.Wallet, name string, children ...dtid.DT) dtid.DT {
	t.Helper()
	workflow := make(map[dtid.DT]ddo.WorkflowEntry, len(children))
	for _, child := range children {
		workflow[child] = ddo.WorkflowEntry{Service: "0", Constraint: map[string]string{"pred": "region = eu"}}
	}
	doc, err := ddo.Build(
		ddo.Metadata{Name: name, Type: ddo.Operation},
		[]ddo.Service{{
			Index:      "0",
			Endpoint:   "https://agg.example/api",
			Descriptor: ddo.Descriptor{Workflow: workflow},
			Attributes: ddo.Attributes{Price: "25"},
		}},
		owner.Address(),
		children,
	)
	if err != nil {
		t.Fatalf("ddo.Build %s: %v", name, err)
	}
	if _, err := f.orch.Publish(f.ctx, doc, owner, PublishOptions{}); err != nil {
		t.Fatalf("Publish %s: %v", name, err)
	}
	return doc.DT
}

func (f *fixture) computeSignature(t *testing.T, issuer *wallet.Wallet, cdt dtid.DT) string {
	t.Helper()
	signature, err := issuer.Sign(verify.ComputeAuthMessage(issuer.Address(), cdt))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return signature
}

func TestEndToEnd_ComposeAndAuthorize(t *testing.T) {
	f := newFixture(t)
	ownerA := newWallet(t)
	ownerB := newWallet(t)

	a := f.publishLeaf(t, ownerA, "dataset-a", ddo.Dataset)
	b := f.publishLeaf(t, ownerB, "dataset-b", ddo.Dataset)

	c := f.publishComposite(t, f.aggregator, "composite-c", a, b)
	if err := f.orch.Grant(f.ctx, a, c, ownerA); err != nil {
		t.Fatalf("grant a->c: %v", err)
	}
	if err := f.orch.Activate(f.ctx, c, []dtid.DT{a, b}, f.aggregator); err != compose.ErrIncompleteGrant {
		t.Fatalf("activate c with one grant: got %v, want ErrIncompleteGrant", err)
	}
	if err := f.orch.Grant(f.ctx, b, c, ownerB); err != nil {
		t.Fatalf("grant b->c: %v", err)
	}
	if err := f.orch.Activate(f.ctx, c, []dtid.DT{a, b}, f.aggregator); err != nil {
		t.Fatalf("activate c: %v", err)
	}

	d := f.publishComposite(t, f.aggregator, "composite-d", c)
	if err := f.orch.Grant(f.ctx, c, d, f.aggregator); err != nil {
		t.Fatalf("grant c->d: %v", err)
	}
	if err := f.orch.Activate(f.ctx, d, []dtid.DT{c}, f.aggregator); err != nil {
		t.Fatalf("activate d: %v", err)
	}

	// No direct edge a->d: authorization is per declared edge, never
	// transitive through c.
	ok, err := f.orch.AuthorizeComputeRequest(f.ctx, d, a, ownerA.Address(), f.computeSignature(t, f.aggregator, d))
	if err != nil {
		t.Fatalf("authorize d/a: %v", err)
	}
	if ok {
		t.Fatal("authorization leaked transitively through the graph")
	}

	// The authorized edge a->c succeeds.
	ok, err = f.orch.AuthorizeComputeRequest(f.ctx, c, a, ownerA.Address(), f.computeSignature(t, f.aggregator, c))
	if err != nil {
		t.Fatalf("authorize c/a: %v", err)
	}
	if !ok {
		t.Fatal("granted edge denied")
	}
}

func TestAuthorize_GrantShortCircuitsSignature(t *testing.T) {
	f := newFixture(t)
	ownerA := newWallet(t)
	a := f.publishLeaf(t, ownerA, "dataset-a", ddo.Dataset)
	c := f.publishComposite(t, f.aggregator, "composite-c", a)

	if err := f.orch.Grant(f.ctx, a, c, ownerA); err != nil {
		t.Fatalf("grant: %v", err)
	}

	// With a recorded grant the supplied signature is never inspected.
	ok, err := f.orch.AuthorizeComputeRequest(f.ctx, c, a, ownerA.Address(), "garbage-signature")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !ok {
		t.Fatal("existing grant did not short-circuit")
	}
}

func TestAuthorize_NoGrantPath(t *testing.T) {
	f := newFixture(t)
	ownerA := newWallet(t)
	a := f.publishLeaf(t, ownerA, "dataset-a", ddo.Dataset)
	c := f.publishComposite(t, f.aggregator, "composite-c", a)

	// No grant recorded: a bad signature over the correct message denies.
	ok, err := f.orch.AuthorizeComputeRequest(f.ctx, c, a, ownerA.Address(), "garbage-signature")
	if err != nil {
		t.Fatalf("authorize bad signature: %v", err)
	}
	if ok {
		t.Fatal("invalid signature authorized")
	}

	// A valid signature from the composite's issuer authorizes.
	ok, err = f.orch.AuthorizeComputeRequest(f.ctx, c, a, ownerA.Address(), f.computeSignature(t, f.aggregator, c))
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if !ok {
		t.Fatal("valid request denied")
	}

	// The claimed owner must actually own the token.
	stranger := newWallet(t)
	ok, err = f.orch.AuthorizeComputeRequest(f.ctx, c, a, stranger.Address(), f.computeSignature(t, f.aggregator, c))
	if err != nil {
		t.Fatalf("authorize stranger: %v", err)
	}
	if ok {
		t.Fatal("non-owner authorized")
	}

	// The composite must consume the token in a declared workflow.
	other := f.publishLeaf(t, ownerA, "dataset-other", ddo.Dataset)
	ok, err = f.orch.AuthorizeComputeRequest(f.ctx, c, other, ownerA.Address(), f.computeSignature(t, f.aggregator, c))
	if err != nil {
		t.Fatalf("authorize unconsumed: %v", err)
	}
	if ok {
		t.Fatal("token outside the workflow authorized")
	}

	// Unknown tokens deny instead of erroring.
	unknown, err := dtid.New()
	if err != nil {
		t.Fatalf("dtid.New: %v", err)
	}
	ok, err = f.orch.AuthorizeComputeRequest(f.ctx, unknown, a, ownerA.Address(), "sig")
	if err != nil {
		t.Fatalf("authorize unknown: %v", err)
	}
	if ok {
		t.Fatal("unknown composite authorized")
	}
}

func TestAuthorizeJobRequest(t *testing.T) {
	f := newFixture(t)
	ownerA := newWallet(t)
	a := f.publishLeaf(t, ownerA, "dataset-a", ddo.Dataset)
	c := f.publishComposite(t, f.aggregator, "composite-c", a)
	if err := f.orch.Grant(f.ctx, a, c, ownerA); err != nil {
		t.Fatalf("grant: %v", err)
	}

	task, err := f.orch.Jobs.CreateTask(f.ctx, "aggregation")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	job, err := f.orch.Jobs.AddJob(f.ctx, task.ID, c)
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}

	signature, err := ownerA.Sign(verify.JobAuthMessage(ownerA.Address(), job.ID))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	ok, err := f.orch.AuthorizeJobRequest(f.ctx, job.ID, a, ownerA.Address(), signature)
	if err != nil {
		t.Fatalf("AuthorizeJobRequest: %v", err)
	}
	if !ok {
		t.Fatal("valid job request denied")
	}

	ok, err = f.orch.AuthorizeJobRequest(f.ctx, job.ID, a, ownerA.Address(), "garbage")
	if err != nil {
		t.Fatalf("AuthorizeJobRequest bad signature: %v", err)
	}
	if ok {
		t.Fatal("bad job signature authorized")
	}

	ok, err = f.orch.AuthorizeJobRequest(f.ctx, "no-such-job", a, ownerA.Address(), signature)
	if err != nil {
		t.Fatalf("AuthorizeJobRequest unknown job: %v", err)
	}
	if ok {
		t.Fatal("unknown job authorized")
	}
}

func TestMarketplace_FiltersAndProjects(t *testing.T) {
	f := newFixture(t)
	ownerA := newWallet(t)

	if err := f.ledger.RegisterEnterprise(f.ctx, ownerA.Address(), "Acme Data", "rows", f.operator); err != nil {
		t.Fatalf("RegisterEnterprise: %v", err)
	}

	a := f.publishLeaf(t, ownerA, "dataset-a", ddo.Dataset)
	f.publishLeaf(t, ownerA, "model-m", ddo.Algorithm)

	// A record minted with a checksum that does not match its document is
	// skipped silently.
	forged, err := ddo.Build(
		ddo.Metadata{Name: "forged", Type: ddo.Dataset},
		[]ddo.Service{{
			Index:      "0",
			Descriptor: ddo.Descriptor{Template: f.templateID},
			Attributes: ddo.Attributes{Price: "1"},
		}},
		ownerA.Address(),
		nil,
	)
	if err != nil {
		t.Fatalf("ddo.Build: %v", err)
	}
	b, err := ddo.Encode(forged)
	if err != nil {
		t.Fatalf("ddo.Encode: %v", err)
	}
	locator, err := f.orch.Store.Put(b)
	if err != nil {
		t.Fatalf("store.Put: %v", err)
	}
	err = f.ledger.MintToken(f.ctx, forged.DT, ownerA.Address(), true, "sha3-256:deadbeef", locator.String(), ownerA)
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	entries, err := f.orch.Marketplace(f.ctx)
	if err != nil {
		t.Fatalf("Marketplace: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(entries), entries)
	}
	entry := entries[0]
	if entry.DT != a.String() || entry.Name != "dataset-a" || entry.IsComposite {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.IssuerName != "Acme Data" {
		t.Fatalf("issuer name not resolved: %+v", entry)
	}
}

func TestDetails_RendersLineage(t *testing.T) {
	f := newFixture(t)
	ownerA := newWallet(t)
	a := f.publishLeaf(t, ownerA, "dataset-a", ddo.Dataset)
	c := f.publishComposite(t, f.aggregator, "composite-c", a)

	details, ok, err := f.orch.Details(f.ctx, c)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if !ok {
		t.Fatal("published composite reported absent")
	}
	if !details.IsComposite || details.Lineage == nil {
		t.Fatalf("lineage missing: %+v", details)
	}
	if len(details.Lineage.Children) != 1 || details.Lineage.Children[0].DT != a.String() {
		t.Fatalf("unexpected lineage: %+v", details.Lineage)
	}
	if len(details.Services) != 1 || details.Services[0].Price != "25" {
		t.Fatalf("unexpected services view: %+v", details.Services)
	}

	unknown, err := dtid.New()
	if err != nil {
		t.Fatalf("dtid.New: %v", err)
	}
	_, ok, err = f.orch.Details(f.ctx, unknown)
	if err != nil {
		t.Fatalf("Details unknown: %v", err)
	}
	if ok {
		t.Fatal("unknown token reported present")
	}
}

func TestPublish_RejectsUnverifiedServices(t *testing.T) {
	f := newFixture(t)
	ownerA := newWallet(t)

	unpublished, err := dtid.New()
	if err != nil {
		t.Fatalf("dtid.New: %v", err)
	}
	doc, err := ddo.Build(
		ddo.Metadata{Name: "dangling", Type: ddo.Dataset},
		[]ddo.Service{{
			Index:      "0",
			Descriptor: ddo.Descriptor{Template: unpublished},
			Attributes: ddo.Attributes{Price: "1"},
		}},
		ownerA.Address(),
		nil,
	)
	if err != nil {
		t.Fatalf("ddo.Build: %v", err)
	}

	_, err = f.orch.Publish(f.ctx, doc, ownerA, PublishOptions{})
	coded, isCoded := err.(*CodedError)
	if !isCoded || coded.Code != ErrServiceCheck {
		t.Fatalf("got %v, want SERVICE_CHECK_FAILED", err)
	}

	// The same document publishes when the check is deferred.
	if _, err := f.orch.Publish(f.ctx, doc, ownerA, PublishOptions{SkipServiceCheck: true}); err != nil {
		t.Fatalf("Publish skip: %v", err)
	}
}
