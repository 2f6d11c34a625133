package grpcregistry

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// LedgerServer is the server API for the Ledger gRPC service.
//
// Every method exchanges protobuf well-known Struct values so this package
// does not require a protoc/codegen toolchain.
//
// Proto definition: ledger.proto.
type LedgerServer interface {
	Mint(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Grant(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Activate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Tokens(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Record(context.Context, *structpb.Struct) (*structpb.Struct, error)
	HasEdge(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterTemplate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Template(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RegisterEnterprise(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EnterpriseName(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedLedgerServer can be embedded to have forward compatible implementations.
type UnimplementedLedgerServer struct{}

func (UnimplementedLedgerServer) Mint(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Mint not implemented")
}
func (UnimplementedLedgerServer) Grant(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Grant not implemented")
}
func (UnimplementedLedgerServer) Activate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Activate not implemented")
}
func (UnimplementedLedgerServer) Tokens(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Tokens not implemented")
}
func (UnimplementedLedgerServer) Record(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Record not implemented")
}
func (UnimplementedLedgerServer) HasEdge(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method HasEdge not implemented")
}
func (UnimplementedLedgerServer) RegisterTemplate(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RegisterTemplate not implemented")
}
func (UnimplementedLedgerServer) Template(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Template not implemented")
}
func (UnimplementedLedgerServer) RegisterEnterprise(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method RegisterEnterprise not implemented")
}
func (UnimplementedLedgerServer) EnterpriseName(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method EnterpriseName not implemented")
}

// RegisterLedgerServer registers the Ledger service on a gRPC server.
func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&Ledger_ServiceDesc, srv)
}

// LedgerClient is the client API for the Ledger gRPC service.
type LedgerClient interface {
	Mint(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Grant(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Activate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Tokens(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Record(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	HasEdge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RegisterTemplate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Template(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RegisterEnterprise(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	EnterpriseName(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

const ledgerService = "/xdao.datatoken.registry.grpcregistry.v1.Ledger/"

type ledgerClient struct{ cc grpc.ClientConnInterface }

func NewLedgerClient(cc grpc.ClientConnInterface) LedgerClient { return &ledgerClient{cc: cc} }

func (c *ledgerClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	err := c.cc.Invoke(ctx, ledgerService+method, in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Mint(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Mint", in, opts)
}

func (c *ledgerClient) Grant(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Grant", in, opts)
}

func (c *ledgerClient) Activate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Activate", in, opts)
}

func (c *ledgerClient) Tokens(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Tokens", in, opts)
}

func (c *ledgerClient) Record(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Record", in, opts)
}

func (c *ledgerClient) HasEdge(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "HasEdge", in, opts)
}

func (c *ledgerClient) RegisterTemplate(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "RegisterTemplate", in, opts)
}

func (c *ledgerClient) Template(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Template", in, opts)
}

func (c *ledgerClient) RegisterEnterprise(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "RegisterEnterprise", in, opts)
}

func (c *ledgerClient) EnterpriseName(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "EnterpriseName", in, opts)
}

// Every Ledger method shares one Struct->Struct shape; the handlers are
// generated from a single template instead of being spelled out per method.
func ledgerHandler(method string, call func(LedgerServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ledgerService + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(LedgerServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Ledger_ServiceDesc is the grpc.ServiceDesc for the Ledger service.
var Ledger_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "xdao.datatoken.registry.grpcregistry.v1.Ledger",
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		ledgerHandler("Mint", LedgerServer.Mint),
		ledgerHandler("Grant", LedgerServer.Grant),
		ledgerHandler("Activate", LedgerServer.Activate),
		ledgerHandler("Tokens", LedgerServer.Tokens),
		ledgerHandler("Record", LedgerServer.Record),
		ledgerHandler("HasEdge", LedgerServer.HasEdge),
		ledgerHandler("RegisterTemplate", LedgerServer.RegisterTemplate),
		ledgerHandler("Template", LedgerServer.Template),
		ledgerHandler("RegisterEnterprise", LedgerServer.RegisterEnterprise),
		ledgerHandler("EnterpriseName", LedgerServer.EnterpriseName),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger.proto",
}
