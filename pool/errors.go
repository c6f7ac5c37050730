package pool

import (
	"fmt"
	"time"
)

// Kind classifies the error surface the pool exposes (spec §6.5, §7).
type Kind int

const (
	// KindNoServerAvailable means every server in the configured list
	// failed to open a session for one acquisition attempt.
	KindNoServerAvailable Kind = iota
	// KindTimeout means a Bounded-Queue pool was at capacity (idle
	// empty, overflow exhausted) and the wait for a release elapsed.
	KindTimeout
	// KindDisconnection is signalled internally by a CheckoutObserver
	// to force a fresh session; it is consumed by the pool and never
	// escapes Connect/UniqueConnection on its own (escalates to
	// KindInvalidRequest after the retry budget is exhausted).
	KindDisconnection
	// KindInvalidRequest means an operation was attempted against a
	// closed, detached, or otherwise terminal Handle.
	KindInvalidRequest
	// KindAssertion means the Assertion strategy detected a checkout
	// or release that violates its single-outstanding-handle rule.
	KindAssertion
)

func (k Kind) String() string {
	switch k {
	case KindNoServerAvailable:
		return "NoServerAvailable"
	case KindTimeout:
		return "Timeout"
	case KindDisconnection:
		return "Disconnection"
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindAssertion:
		return "Assertion"
	default:
		return "Unknown"
	}
}

// Error is the single error type the pool raises. Callers distinguish
// cases with errors.Is against the Err* sentinels below, or errors.As
// to recover the structured fields (Servers, PoolSize, CauseClass, ...).
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Populated for KindNoServerAvailable.
	Servers []string

	// Populated for KindTimeout.
	PoolSize    int
	MaxOverflow int
	Timeout     time.Duration

	// Populated for KindDisconnection: the originating exception
	// class name, as reported by the observer that raised it (spec
	// §6.5).
	CauseClass string
}

func (e *Error) Error() string {
	if e.Message != "" {
		if e.Cause != nil {
			return fmt.Sprintf("laura-pool: %s: %s: %v", e.Kind, e.Message, e.Cause)
		}
		return fmt.Sprintf("laura-pool: %s: %s", e.Kind, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("laura-pool: %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("laura-pool: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is a sentinel for the same Kind, so
// errors.Is(err, ErrTimeout) works without exposing Error's other
// fields as part of the comparison.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is. None of these carry field data; use
// errors.As(err, &poolErr) to recover it.
var (
	ErrNoServerAvailable = &Error{Kind: KindNoServerAvailable}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrDisconnection     = &Error{Kind: KindDisconnection}
	ErrInvalidRequest    = &Error{Kind: KindInvalidRequest}
	ErrAssertion         = &Error{Kind: KindAssertion}
)

func errNoServerAvailable(servers []string, cause error) error {
	return &Error{Kind: KindNoServerAvailable, Servers: append([]string(nil), servers...), Cause: cause}
}

func errTimeout(poolSize, maxOverflow int, timeout time.Duration) error {
	return &Error{
		Kind:        KindTimeout,
		Message:     fmt.Sprintf("pool size %d overflow %d reached, timeout %s", poolSize, maxOverflow, timeout),
		PoolSize:    poolSize,
		MaxOverflow: maxOverflow,
		Timeout:     timeout,
	}
}

// Disconnection builds the signal a CheckoutObserver raises from
// OnCheckout to force the pool to invalidate the record and retry
// (spec §4.3). causeClass is a short label for whatever triggered it
// (e.g. the concrete type name of the underlying error).
func Disconnection(causeClass string, cause error) error {
	return &Error{Kind: KindDisconnection, CauseClass: causeClass, Cause: cause}
}

func errInvalidRequest(message string) error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

func errAssertion(message string) error {
	return &Error{Kind: KindAssertion, Message: message}
}
