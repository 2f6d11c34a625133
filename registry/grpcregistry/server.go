package grpcregistry

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/datatoken/dtid"
	"xdao.co/datatoken/registry"
	"xdao.co/datatoken/wallet"
)

// Ledger is the full ledger surface the server fronts.
type Ledger interface {
	registry.Registry
	registry.TemplateIndex
	registry.Directory
}

// Server exposes a Ledger over the Ledger gRPC service. Writes are only
// applied after the request's signature envelope verifies against the
// claimed address.
type Server struct {
	UnimplementedLedgerServer
	Ledger Ledger
}

// remoteSigner stands in for the caller's wallet on the server side. The
// envelope already proved control of the address, so only Address is ever
// consulted; Sign must never be reached.
type remoteSigner struct{ address string }

func (s remoteSigner) Address() string { return s.address }

func (s remoteSigner) Sign([]byte) (string, error) {
	return "", errors.New("remote signer cannot sign")
}

func (s *Server) authorize(in *structpb.Struct, message []byte) (registry.Signer, error) {
	address := stringField(in, "address")
	signature := stringField(in, "signature")
	if err := wallet.Verify(address, signature, message); err != nil {
		return nil, status.Error(codes.Unauthenticated, "signature verification failed")
	}
	return remoteSigner{address: address}, nil
}

func (s *Server) ready() error {
	if s == nil || s.Ledger == nil {
		return status.Error(codes.FailedPrecondition, "missing ledger")
	}
	return nil
}

func (s *Server) Mint(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	dt, err := dtField(in, "dt")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	owner := stringField(in, "owner")
	checksum := stringField(in, "checksum")
	locator := stringField(in, "locator")
	signer, err := s.authorize(in, mintMessage(dt, owner, checksum, locator))
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.MintToken(ctx, dt, owner, boolField(in, "isLeaf"), checksum, locator, signer); err != nil {
		return nil, mapErr(err)
	}
	return emptyStruct(), nil
}

func (s *Server) Grant(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	childDT, err := dtField(in, "child")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	compositeDT, err := dtField(in, "composite")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	signer, err := s.authorize(in, grantMessage(childDT, compositeDT))
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.GrantEdge(ctx, childDT, compositeDT, signer); err != nil {
		return nil, mapErr(err)
	}
	return emptyStruct(), nil
}

func (s *Server) Activate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	compositeDT, err := dtField(in, "composite")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	childDTs, err := dtListField(in, "children")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	signer, err := s.authorize(in, activateMessage(compositeDT, childDTs))
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.ActivateComposite(ctx, compositeDT, childDTs, signer); err != nil {
		return nil, mapErr(err)
	}
	return emptyStruct(), nil
}

func (s *Server) Tokens(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_ = in
	if err := s.ready(); err != nil {
		return nil, err
	}
	entries, err := s.Ledger.AvailableTokens(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	tokens := make([]interface{}, 0, len(entries))
	for _, entry := range entries {
		tokens = append(tokens, recordFields(entry.DT, entry.Record))
	}
	return mustStruct(map[string]interface{}{"tokens": tokens}), nil
}

func (s *Server) Record(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	dt, err := dtField(in, "dt")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	record, err := s.Ledger.TokenRecord(ctx, dt)
	if err != nil {
		return nil, mapErr(err)
	}
	return mustStruct(recordFields(dt, record)), nil
}

func (s *Server) HasEdge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	from, err := dtField(in, "from")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	to, err := dtField(in, "to")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	granted, err := s.Ledger.HasEdge(ctx, from, to)
	if err != nil {
		return nil, mapErr(err)
	}
	return mustStruct(map[string]interface{}{"granted": granted}), nil
}

func (s *Server) RegisterTemplate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	tid, err := dtField(in, "tid")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	checksum := stringField(in, "checksum")
	locator := stringField(in, "locator")
	signer, err := s.authorize(in, templateMessage(tid, checksum, locator))
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.RegisterTemplate(ctx, tid, checksum, locator, signer); err != nil {
		return nil, mapErr(err)
	}
	return emptyStruct(), nil
}

func (s *Server) Template(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	tid, err := dtField(in, "tid")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	record, err := s.Ledger.Template(ctx, tid)
	if err != nil {
		return nil, mapErr(err)
	}
	return mustStruct(map[string]interface{}{
		"issuer":   record.Issuer,
		"checksum": record.Checksum,
		"locator":  record.Locator,
	}), nil
}

func (s *Server) RegisterEnterprise(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	address := stringField(in, "enterprise")
	name := stringField(in, "name")
	signer, err := s.authorize(in, enterpriseMessage(address, name))
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.RegisterEnterprise(ctx, address, name, stringField(in, "description"), signer); err != nil {
		return nil, mapErr(err)
	}
	return emptyStruct(), nil
}

func (s *Server) EnterpriseName(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	name, err := s.Ledger.EnterpriseName(ctx, stringField(in, "enterprise"))
	if err != nil {
		return nil, mapErr(err)
	}
	return mustStruct(map[string]interface{}{"name": name}), nil
}

func recordFields(dt dtid.DT, record registry.Record) map[string]interface{} {
	return map[string]interface{}{
		"dt":       dt.String(),
		"owner":    record.Owner,
		"issuer":   record.Issuer,
		"isLeaf":   record.IsLeaf,
		"checksum": record.Checksum,
		"locator":  record.Locator,
		"state":    string(record.State),
	}
}
