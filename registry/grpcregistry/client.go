// Package grpcregistry exposes the token ledger over gRPC so that wallets on
// other hosts can mint, grant and query against a shared ledger daemon.
//
// Mutating calls are signed client side with the caller's wallet and
// verified server side before they touch the ledger, so the transport never
// has to be trusted with keys.
package grpcregistry

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/registry"
)

// Client implements the ledger interfaces over the Ledger gRPC service.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ Ledger = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc, client: NewLedgerClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// sign attaches the signature envelope for message to fields.
func sign(fields map[string]interface{}, signer registry.Signer, message []byte) (*structpb.Struct, error) {
	signature, err := signer.Sign(message)
	if err != nil {
		return nil, err
	}
	fields["address"] = signer.Address()
	fields["signature"] = signature
	return structpb.NewStruct(fields)
}

func (c *Client) MintToken(ctx context.Context, dt dtid.DT, owner string, isLeaf bool, checksum, locator string, signer registry.Signer) error {
	in, err := sign(map[string]interface{}{
		"dt":       dt.String(),
		"owner":    owner,
		"isLeaf":   isLeaf,
		"checksum": checksum,
		"locator":  locator,
	}, signer, mintMessage(dt, owner, checksum, locator))
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err = c.client.Mint(ctx, in)
	return mapRPC(err)
}

func (c *Client) GrantEdge(ctx context.Context, childDT, compositeDT dtid.DT, signer registry.Signer) error {
	in, err := sign(map[string]interface{}{
		"child":     childDT.String(),
		"composite": compositeDT.String(),
	}, signer, grantMessage(childDT, compositeDT))
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err = c.client.Grant(ctx, in)
	return mapRPC(err)
}

func (c *Client) ActivateComposite(ctx context.Context, compositeDT dtid.DT, childDTs []dtid.DT, signer registry.Signer) error {
	children := make([]interface{}, 0, len(childDTs))
	for _, child := range childDTs {
		children = append(children, child.String())
	}
	in, err := sign(map[string]interface{}{
		"composite": compositeDT.String(),
		"children":  children,
	}, signer, activateMessage(compositeDT, childDTs))
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err = c.client.Activate(ctx, in)
	return mapRPC(err)
}

func (c *Client) AvailableTokens(ctx context.Context) ([]registry.Entry, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.client.Tokens(ctx, emptyStruct())
	if err != nil {
		return nil, mapRPC(err)
	}
	values := out.GetFields()["tokens"].GetListValue().GetValues()
	entries := make([]registry.Entry, 0, len(values))
	for _, item := range values {
		entry, err := parseEntry(item.GetStructValue())
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (c *Client) TokenRecord(ctx context.Context, dt dtid.DT) (registry.Record, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.client.Record(ctx, mustStruct(map[string]interface{}{"dt": dt.String()}))
	if err != nil {
		return registry.Record{}, mapRPC(err)
	}
	entry, err := parseEntry(out)
	if err != nil {
		return registry.Record{}, err
	}
	return entry.Record, nil
}

func (c *Client) HasEdge(ctx context.Context, from, to dtid.DT) (bool, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.client.HasEdge(ctx, mustStruct(map[string]interface{}{
		"from": from.String(),
		"to":   to.String(),
	}))
	if err != nil {
		return false, mapRPC(err)
	}
	return boolField(out, "granted"), nil
}

func (c *Client) RegisterTemplate(ctx context.Context, tid dtid.DT, checksum, locator string, signer registry.Signer) error {
	in, err := sign(map[string]interface{}{
		"tid":      tid.String(),
		"checksum": checksum,
		"locator":  locator,
	}, signer, templateMessage(tid, checksum, locator))
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err = c.client.RegisterTemplate(ctx, in)
	return mapRPC(err)
}

func (c *Client) Template(ctx context.Context, tid dtid.DT) (registry.TemplateRecord, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.client.Template(ctx, mustStruct(map[string]interface{}{"tid": tid.String()}))
	if err != nil {
		return registry.TemplateRecord{}, mapRPC(err)
	}
	return registry.TemplateRecord{
		Issuer:   stringField(out, "issuer"),
		Checksum: stringField(out, "checksum"),
		Locator:  stringField(out, "locator"),
	}, nil
}

func (c *Client) RegisterEnterprise(ctx context.Context, address, name, description string, signer registry.Signer) error {
	in, err := sign(map[string]interface{}{
		"enterprise":  address,
		"name":        name,
		"description": description,
	}, signer, enterpriseMessage(address, name))
	if err != nil {
		return err
	}
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	_, err = c.client.RegisterEnterprise(ctx, in)
	return mapRPC(err)
}

func (c *Client) EnterpriseName(ctx context.Context, address string) (string, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()
	out, err := c.client.EnterpriseName(ctx, mustStruct(map[string]interface{}{"enterprise": address}))
	if err != nil {
		return "", mapRPC(err)
	}
	return stringField(out, "name"), nil
}

func parseEntry(s *structpb.Struct) (registry.Entry, error) {
	dt, err := dtField(s, "dt")
	if err != nil {
		return registry.Entry{}, err
	}
	return registry.Entry{
		DT: dt,
		Record: registry.Record{
			Owner:    stringField(s, "owner"),
			Issuer:   stringField(s, "issuer"),
			IsLeaf:   boolField(s, "isLeaf"),
			Checksum: stringField(s, "checksum"),
			Locator:  stringField(s, "locator"),
			State:    registry.State(stringField(s, "state")),
		},
	}, nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
