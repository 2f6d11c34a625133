package registry

import "errors"

var (
	ErrNotFound      = errors.New("registry: not found")
	ErrAlreadyMinted = errors.New("registry: token already minted")
	ErrNotOwner      = errors.New("registry: signer does not own token")
	ErrNotComposite  = errors.New("registry: token is not composite")
	ErrMissingEdge   = errors.New("registry: missing grant edge")
	ErrInvalidRecord = errors.New("registry: invalid record")
	ErrNotOperator   = errors.New("registry: signer is not the directory operator")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
