package domain

import "errors"

// Every rejected request carries one of these. None of them is transient.
var (
	ErrNotFound           = errors.New("not found")
	ErrOwnershipMismatch  = errors.New("does not belong to project")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrInvalidArgument    = errors.New("invalid argument")
)
