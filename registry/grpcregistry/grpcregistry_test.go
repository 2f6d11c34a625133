package grpcregistry

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/registry"
	"xdao.co/datatoken/registry/memregistry"
	"xdao.co/datatoken/wallet"
)

func newBufLedger(t *testing.T) (*Client, *memregistry.Ledger) {
	t.Helper()

	backing := memregistry.New()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterLedgerServer(srv, &Server{Ledger: backing})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return &Client{cc: cc, client: NewLedgerClient(cc), Timeout: 2 * time.Second}, backing
}

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.NewEd25519(nil)
	if err != nil {
		t.Fatalf("NewEd25519: %v", err)
	}
	return w
}

func mustDT(t *testing.T) dtid.DT {
	t.Helper()
	dt, err := dtid.New()
	if err != nil {
		t.Fatalf("dtid.New: %v", err)
	}
	return dt
}

func TestLedger_MintAndRecordRoundTrip(t *testing.T) {
	client, _ := newBufLedger(t)
	owner := newWallet(t)
	ctx := context.Background()

	dt := mustDT(t)
	err := client.MintToken(ctx, dt, owner.Address(), true, "sha3-256:ab", "bafyleaf", owner)
	if err != nil {
		t.Fatalf("MintToken: %v", err)
	}

	record, err := client.TokenRecord(ctx, dt)
	if err != nil {
		t.Fatalf("TokenRecord: %v", err)
	}
	if record.Owner != owner.Address() || record.Issuer != owner.Address() {
		t.Fatalf("record ownership mismatch: %+v", record)
	}
	if !record.IsLeaf || record.State != registry.StateActive {
		t.Fatalf("leaf token not active on mint: %+v", record)
	}

	if err := client.MintToken(ctx, dt, owner.Address(), true, "sha3-256:ab", "bafyleaf", owner); err != registry.ErrAlreadyMinted {
		t.Fatalf("remint: got %v, want ErrAlreadyMinted", err)
	}
}

func TestLedger_GrantActivateFlow(t *testing.T) {
	client, _ := newBufLedger(t)
	owner := newWallet(t)
	ctx := context.Background()

	child := mustDT(t)
	composite := mustDT(t)
	if err := client.MintToken(ctx, child, owner.Address(), true, "sha3-256:01", "bafychild", owner); err != nil {
		t.Fatalf("mint child: %v", err)
	}
	if err := client.MintToken(ctx, composite, owner.Address(), false, "sha3-256:02", "bafycomposite", owner); err != nil {
		t.Fatalf("mint composite: %v", err)
	}

	if err := client.ActivateComposite(ctx, composite, []dtid.DT{child}, owner); err != registry.ErrMissingEdge {
		t.Fatalf("premature activation: got %v, want ErrMissingEdge", err)
	}

	if err := client.GrantEdge(ctx, child, composite, owner); err != nil {
		t.Fatalf("GrantEdge: %v", err)
	}
	granted, err := client.HasEdge(ctx, child, composite)
	if err != nil {
		t.Fatalf("HasEdge: %v", err)
	}
	if !granted {
		t.Fatal("edge not visible after grant")
	}

	if err := client.ActivateComposite(ctx, composite, []dtid.DT{child}, owner); err != nil {
		t.Fatalf("ActivateComposite: %v", err)
	}
	record, err := client.TokenRecord(ctx, composite)
	if err != nil {
		t.Fatalf("TokenRecord: %v", err)
	}
	if record.State != registry.StateActive {
		t.Fatalf("composite not active: %+v", record)
	}
}

func TestLedger_RejectsForgedEnvelope(t *testing.T) {
	client, backing := newBufLedger(t)
	owner := newWallet(t)
	attacker := newWallet(t)
	ctx := context.Background()

	child := mustDT(t)
	composite := mustDT(t)
	if err := client.MintToken(ctx, child, owner.Address(), true, "sha3-256:01", "bafychild", owner); err != nil {
		t.Fatalf("mint child: %v", err)
	}
	if err := client.MintToken(ctx, composite, attacker.Address(), false, "sha3-256:02", "bafycomposite", attacker); err != nil {
		t.Fatalf("mint composite: %v", err)
	}

	// The attacker signs correctly but does not own the child token.
	if err := client.GrantEdge(ctx, child, composite, attacker); err != registry.ErrNotOwner {
		t.Fatalf("foreign grant: got %v, want ErrNotOwner", err)
	}

	// A signature over the wrong message must be rejected before the
	// ledger is consulted at all.
	signature, err := attacker.Sign([]byte("unrelated"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	in, err := structpb.NewStruct(map[string]interface{}{
		"child":     child.String(),
		"composite": composite.String(),
		"address":   owner.Address(),
		"signature": signature,
	})
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	if _, err := client.client.Grant(ctx, in); err == nil {
		t.Fatal("forged envelope accepted")
	}
	granted, err := backing.HasEdge(ctx, child, composite)
	if err != nil {
		t.Fatalf("HasEdge: %v", err)
	}
	if granted {
		t.Fatal("forged envelope mutated the ledger")
	}
}

func TestLedger_EnumerationAndDirectory(t *testing.T) {
	operator := newWallet(t)

	backing := memregistry.New(memregistry.WithOperator(operator.Address()))
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterLedgerServer(srv, &Server{Ledger: backing})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })
	client := &Client{cc: cc, client: NewLedgerClient(cc), Timeout: 2 * time.Second}

	owner := newWallet(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := client.MintToken(ctx, mustDT(t), owner.Address(), true, "sha3-256:0a", "bafyx", owner); err != nil {
			t.Fatalf("mint %d: %v", i, err)
		}
	}
	entries, err := client.AvailableTokens(ctx)
	if err != nil {
		t.Fatalf("AvailableTokens: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].DT.String() >= entries[i].DT.String() {
			t.Fatal("enumeration not sorted")
		}
	}

	if err := client.RegisterEnterprise(ctx, owner.Address(), "Acme Data", "rows r us", operator); err != nil {
		t.Fatalf("RegisterEnterprise: %v", err)
	}
	if err := client.RegisterEnterprise(ctx, owner.Address(), "Mallory", "", owner); err != registry.ErrNotOperator {
		t.Fatalf("non-operator registration: got %v, want ErrNotOperator", err)
	}
	name, err := client.EnterpriseName(ctx, owner.Address())
	if err != nil {
		t.Fatalf("EnterpriseName: %v", err)
	}
	if name != "Acme Data" {
		t.Fatalf("got %q, want Acme Data", name)
	}

	if _, err := client.TokenRecord(ctx, mustDT(t)); err != registry.ErrNotFound {
		t.Fatalf("absent record: got %v, want ErrNotFound", err)
	}
}
