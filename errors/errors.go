// Package errors is the error toolkit used across jobpulse.
//
// It re-exports github.com/cockroachdb/errors so every package gets stack
// traces, hints and details from a single import, and it defines the
// sentinels the watcher branches on.
//
//	if err := sink.Create(ctx, payload); err != nil {
//	    return errors.Wrap(err, "publish listing")
//	}
//
//	err = errors.WithDetail(err, string(responseBody))
//
// Attach diagnostics (payloads, response bodies) with WithDetail instead of
// formatting them into the message; GetAllDetails recovers them for logging.
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Join         = crdb.Join
)

var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
	Mark        = crdb.Mark
)

var (
	Is             = crdb.Is
	IsAny          = crdb.IsAny
	As             = crdb.As
	Unwrap         = crdb.Unwrap
	UnwrapAll      = crdb.UnwrapAll
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Sentinels. Wrap or Mark them to add context while keeping errors.Is working.
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = New("not found")

	// ErrInvalidListing indicates a listing violates the data model
	// (for example both season and terms are present)
	ErrInvalidListing = New("invalid listing")

	// ErrSinkRejected indicates the messaging sink answered with a non-success status
	ErrSinkRejected = New("sink rejected request")

	// ErrCorruptState indicates persisted state could not be decoded
	ErrCorruptState = New("corrupt persisted state")

	// ErrInvalidConfig indicates configuration failed validation
	ErrInvalidConfig = New("invalid configuration")

	// ErrTimeout indicates an operation exceeded its deadline
	ErrTimeout = New("operation timed out")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsCorruptStateError checks if an error is or wraps ErrCorruptState.
func IsCorruptStateError(err error) bool {
	return err != nil && Is(err, ErrCorruptState)
}

// NewInvalidListingError creates an invalid-listing error with a formatted message.
func NewInvalidListingError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrInvalidListing)
}

// NewCorruptStateError wraps a decode failure as corrupt persisted state.
func NewCorruptStateError(err error, context string) error {
	return Mark(Wrap(err, context), ErrCorruptState)
}
