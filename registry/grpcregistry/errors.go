package grpcregistry

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/datatoken/registry"
)

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case err == registry.ErrNotFound:
		return status.Error(codes.NotFound, err.Error())
	case err == registry.ErrAlreadyMinted:
		return status.Error(codes.AlreadyExists, err.Error())
	case err == registry.ErrNotOwner:
		return status.Error(codes.PermissionDenied, err.Error())
	case err == registry.ErrNotOperator:
		return status.Error(codes.PermissionDenied, err.Error())
	case err == registry.ErrNotComposite:
		return status.Error(codes.FailedPrecondition, err.Error())
	case err == registry.ErrMissingEdge:
		return status.Error(codes.FailedPrecondition, err.Error())
	case err == registry.ErrInvalidRecord:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// mapRPC recovers the registry sentinel from a gRPC status. Several
// sentinels share a code, so the message disambiguates within it.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return registry.ErrNotFound
	case codes.AlreadyExists:
		return registry.ErrAlreadyMinted
	case codes.PermissionDenied:
		if st.Message() == registry.ErrNotOperator.Error() {
			return registry.ErrNotOperator
		}
		return registry.ErrNotOwner
	case codes.FailedPrecondition:
		if st.Message() == registry.ErrNotComposite.Error() {
			return registry.ErrNotComposite
		}
		if st.Message() == registry.ErrMissingEdge.Error() {
			return registry.ErrMissingEdge
		}
		return err
	case codes.InvalidArgument:
		return registry.ErrInvalidRecord
	default:
		return err
	}
}
