package grpcstore

import (
	"context"

	"github.com/ipfs/go-cid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/datatoken/store"
)

// Server exposes a store.ObjectStore over the ObjectStore gRPC service.
type Server struct {
	UnimplementedObjectStoreServer
	Store store.ObjectStore
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing object store")
	}
	b := in.GetValue()
	// Enforce the locator contract on the server side too.
	expected, err := store.Locator(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "locator computation failed")
	}
	locator, err := s.Store.Put(b)
	if err != nil {
		return nil, mapErr(err)
	}
	if locator.String() != expected.String() {
		return nil, status.Error(codes.DataLoss, store.ErrLocatorMismatch.Error())
	}
	return wrapperspb.String(locator.String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing object store")
	}
	locator, err := cid.Decode(in.GetValue())
	if err != nil || !locator.Defined() {
		return nil, status.Error(codes.InvalidArgument, store.ErrInvalidLocator.Error())
	}
	b, err := s.Store.Get(locator)
	if err != nil {
		return nil, mapErr(err)
	}
	got, err := store.Locator(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "locator computation failed")
	}
	if got.String() != locator.String() {
		return nil, status.Error(codes.DataLoss, store.ErrLocatorMismatch.Error())
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	_ = ctx
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing object store")
	}
	locator, err := cid.Decode(in.GetValue())
	if err != nil || !locator.Defined() {
		return nil, status.Error(codes.InvalidArgument, store.ErrInvalidLocator.Error())
	}
	return wrapperspb.Bool(s.Store.Has(locator)), nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case err == store.ErrNotFound:
		return status.Error(codes.NotFound, err.Error())
	case err == store.ErrInvalidLocator:
		return status.Error(codes.InvalidArgument, err.Error())
	case err == store.ErrLocatorMismatch:
		return status.Error(codes.DataLoss, err.Error())
	case err == store.ErrImmutable:
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
