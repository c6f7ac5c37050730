package pool

import "context"

// Status is a point-in-time snapshot of a strategy's bookkeeping,
// rendered by Pool.Status() (spec §6.4).
type Status struct {
	// Name is the strategy's short label, e.g. "BoundedQueuePool".
	Name string
	// Size is the strategy's configured size: pool_size for
	// Bounded-Queue and Per-Thread-Singleton, 1 for Static and
	// Assertion, 0 for Null.
	Size int
	// Checked is the number of records currently checked out, as the
	// strategy tracks it: Null and Static always report 0, and
	// Per-Thread-Singleton reports its live record count.
	Checked int
	// Overflow is Bounded-Queue's signed overflow counter (§4.4.1); zero
	// for strategies that don't track it.
	Overflow int
}

// Strategy is the pool's pluggable acquisition/release policy (spec
// §4.4). Every variant decides what "acquire" and "release" mean for
// its own record-holding discipline; the rest of the pool (Record,
// Handle, listener hub, leak reclaim) is identical across strategies.
type Strategy[S Session] interface {
	// acquire returns a Record ready to be wrapped in a fresh Handle,
	// opening or reusing one per the strategy's own rules. It blocks
	// (subject to ctx) only where spec.md says the strategy blocks
	// (Bounded-Queue under exhaustion).
	acquire(ctx context.Context) (*Record[S], error)

	// release returns record to the strategy's bookkeeping once a
	// Handle's checkout depth reaches zero (or on Detach). Only
	// AssertionPool ever returns a non-nil error here (spec §4.4.5:
	// release on a record that isn't checked out).
	release(record *Record[S]) error

	// dispose tears down every record the strategy currently holds,
	// closing their sessions. Called from Pool.Dispose (spec §4.6).
	dispose()

	// status renders the strategy's current bookkeeping for Pool.Status.
	status() Status

	// bypassesOwnershipCheck reports whether the leak-reclaim backstop's
	// generation comparison (spec §4.3 step 1) should be skipped for
	// records owned by this strategy. Only AssertionPool sets this: its
	// whole purpose is to catch a leaked/duplicate return rather than
	// silently tolerate it (spec §4.4.5).
	bypassesOwnershipCheck() bool

	// forbidsInvalidation reports whether Handle.Invalidate should
	// refuse to run against a record owned by this strategy. Only
	// StaticPool sets this (spec §9's resolved open question: a
	// statically shared session doesn't support invalidation, so a
	// caller is told rather than met with silent no-op behavior).
	forbidsInvalidation() bool
}
