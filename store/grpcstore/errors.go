package grpcstore

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"xdao.co/datatoken/store"
)

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
		return store.ErrNotFound
	case codes.InvalidArgument:
		// Server uses InvalidArgument for malformed/undefined locators.
		return store.ErrInvalidLocator
	case codes.DataLoss:
		// Server uses DataLoss when bytes do not match the requested locator.
		return store.ErrLocatorMismatch
	case codes.FailedPrecondition:
		return store.ErrImmutable
	default:
		// Best-effort: if the server sent a known store error message, preserve it.
		switch st.Message() {
		case store.ErrNotFound.Error():
			return store.ErrNotFound
		case store.ErrInvalidLocator.Error():
			return store.ErrInvalidLocator
		case store.ErrLocatorMismatch.Error():
			return store.ErrLocatorMismatch
		case store.ErrImmutable.Error():
			return store.ErrImmutable
		default:
			return err
		}
	}
}
