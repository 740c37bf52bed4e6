package domain

import "github.com/cockroachdb/errors"

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrNotFound              = errors.New("not found")
	ErrHoldExpired           = errors.New("hold expired")
	ErrInvalidState          = errors.New("invalid state")
	ErrShutdown              = errors.New("service shut down")

	ErrSerializationFailure = errors.New("serialization failure")
	ErrConflict             = errors.New("conflict")
)
