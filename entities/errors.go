package entities

import "errors"

var ErrStoreEntityNotFound = errors.New("store resource not found")
var ErrCorruptCheckpoint = errors.New("checkpoint checksum mismatch")

// Fetch error classes. Provider adapters wrap their failures so the scheduler can decide
// whether to retry.
var (
	ErrTransientFetch    = errors.New("transient fetch error")
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrRetriesExhausted  = errors.New("retries exhausted")
)

// Scan level errors.
var (
	ErrConfiguration   = errors.New("invalid configuration")
	ErrPersistence     = errors.New("persisting scan state")
	ErrIterationLimit  = errors.New("iteration limit reached")
	ErrStalled         = errors.New("cursor stalled")
	ErrScanInterrupted = errors.New("scan interrupted")
)

type classifiedError struct {
	class error
	err   error
}

func (e *classifiedError) Error() string {
	return e.class.Error() + ": " + e.err.Error()
}

func (e *classifiedError) Is(target error) bool {
	return target == e.class
}

func (e *classifiedError) Unwrap() error {
	return e.err
}

// Transient marks err as retriable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: ErrTransientFetch, err: err}
}

// Malformed marks err as a response that can never be mapped to a producer.
func Malformed(err error) error {
	if err == nil {
		return nil
	}
	return &classifiedError{class: ErrMalformedResponse, err: err}
}

// IsRetriable reports whether the scheduler may try the unit again.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrTransientFetch)
}
