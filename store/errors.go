package store

import "errors"

var (
	ErrNotFound        = errors.New("store: not found")
	ErrInvalidLocator  = errors.New("store: invalid locator")
	ErrLocatorMismatch = errors.New("store: locator mismatch")
	ErrImmutable       = errors.New("store: immutable object mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
