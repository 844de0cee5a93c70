// Package apperr holds the sentinel errors shared by the store and its surfaces.
package apperr

import "errors"

var (
	// ErrNotFound reports an absent meeting or contact where absence is a normal answer.
	ErrNotFound = errors.New("not found")
	// ErrNullArgument reports that a required value was not supplied.
	ErrNullArgument = errors.New("null argument")
	// ErrInvalidArgument reports a present but semantically wrong value: unknown ids,
	// an empty participant set, or a date that is not in the future where one is required.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidState reports an operation attempted in the wrong lifecycle phase.
	ErrInvalidState = errors.New("invalid state")
)
