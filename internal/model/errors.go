package model

import (
	"errors"
	"fmt"
	"time"
)

// Stable error kinds surfaced to external callers. Internal detail is wrapped
// with %w so errors.Is still resolves the kind.
var (
	ErrRetrieval    = errors.New("no sources available")
	ErrGuard        = errors.New("citation guard failure")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrTimeout      = errors.New("pipeline timeout")
	ErrPersistence  = errors.New("persistence failure")
	ErrNotFound     = errors.New("not found")
	ErrTerminal     = errors.New("terminal status")
	ErrNoCapability = errors.New("capability not configured")
)

// GuardFailure rejects a whole draft and names the claims that fell short.
type GuardFailure struct {
	Required     int   // Minimum distinct spans per claim
	ClaimIndices []int // Offending claim positions, ascending
}

func (e *GuardFailure) Error() string {
	return fmt.Sprintf("%v: %d claim(s) below %d evidence spans (indices %v)",
		ErrGuard, len(e.ClaimIndices), e.Required, e.ClaimIndices)
}

func (e *GuardFailure) Unwrap() error { return ErrGuard }

// RateLimitError carries the retry-after hint for the caller.
type RateLimitError struct {
	Actor      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v for %s: retry after %s", ErrRateLimited, e.Actor, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// NewNotFoundError reports a missing entity by kind and key.
func NewNotFoundError(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

// NewPersistenceError wraps a store failure so the kind stays stable.
func NewPersistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

// Error checking helpers

func IsRetrieval(err error) bool   { return errors.Is(err, ErrRetrieval) }
func IsGuard(err error) bool       { return errors.Is(err, ErrGuard) }
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }
func IsTimeout(err error) bool     { return errors.Is(err, ErrTimeout) }
func IsPersistence(err error) bool { return errors.Is(err, ErrPersistence) }
func IsNotFound(err error) bool    { return errors.Is(err, ErrNotFound) }
