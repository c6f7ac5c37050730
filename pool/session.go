package pool

// Session is the capability set the pool requires from a backend
// connection. The pool only ever calls Close and Rollback on a
// session; domain operations are reached through Handle.Session(),
// which returns the concrete backend type for the caller to use
// directly.
//
// A Session must tolerate a redundant Close: the pool swallows errors
// on a second close during best-effort cleanup.
type Session interface {
	// Close closes the underlying transport. Safe to call more than
	// once.
	Close() error

	// Rollback performs a best-effort reset of any in-flight backend
	// state. It may no-op. Errors are logged and swallowed by the
	// pool, never surfaced to the caller that triggered the return.
	Rollback() error
}
