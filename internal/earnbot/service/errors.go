package service

import "errors"

// Validation errors surfaced to users with a specific corrective message
var (
	ErrUnknownLanguage     = errors.New("unknown language code")
	ErrUnknownMethod       = errors.New("unknown payout method")
	ErrInvalidDetails      = errors.New("invalid payout details")
	ErrBelowMinimum        = errors.New("balance below withdrawal minimum")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNoOutstandingLink   = errors.New("no outstanding shortlink")
)

// transientError marks a retryable external failure (store or HTTP). The
// transport maps these to the generic try-again message instead of a
// specific one.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err as a transient external failure. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is (or wraps) a transient external
// failure.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
