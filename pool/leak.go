package pool

import (
	"runtime"
	"sync"
)

// handleCleanupState is the single piece of shared state a Handle and
// its leak-reclaim backstop both drive the return protocol through. It
// is a separate allocation from the Handle on purpose: runtime.AddCleanup
// must not close over the object it is attached to, or that object
// would never become unreachable and the cleanup would never fire. It
// mirrors the handle's current session so the backstop can still close
// or return it after the handle itself has gone out of scope.
//
// This replaces the source's process-wide, GC-finalizer-driven
// "_refs" set (spec §3, §9) with a per-handle, per-pool-scoped
// mechanism: nothing here is shared across pools or kept alive past a
// single Handle's lifetime, addressing the design note's concern about
// process-wide mutable state head-on.
type handleCleanupState[S Session] struct {
	mu         sync.Mutex
	pool       *Pool[S]
	record     *Record[S]
	generation uint64
	done       bool
	session    S
	hasSession bool
}

func newHandleCleanupState[S Session](p *Pool[S], record *Record[S], generation uint64) *handleCleanupState[S] {
	return &handleCleanupState[S]{pool: p, record: record, generation: generation}
}

// registerLeakCleanup arranges for state's return protocol to run if h
// becomes unreachable without ever completing it itself — the
// realization of spec §3's "leak-reclaim set" and invariant 7 ("a
// handle dropped without being closed is eventually returned to the
// pool").
func registerLeakCleanup[S Session](h *Handle[S], state *handleCleanupState[S]) {
	runtime.AddCleanup(h, leakCleanup[S], state)
}

func leakCleanup[S Session](state *handleCleanupState[S]) {
	if err := state.performReturn(); err != nil && state.pool.logger != nil {
		state.pool.logger.Printf("laura-pool: leak reclaim: %v", err)
	}
}

// setSession mirrors the handle's current session into state, so the
// leak backstop (which never holds a strong reference to the handle
// itself) can still act on it.
func (state *handleCleanupState[S]) setSession(session S, hasSession bool) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.session = session
	state.hasSession = hasSession
}

// detachRecord disassociates state from its record without running the
// return protocol: a detached Handle's eventual cleanup (explicit
// Close or leak reclaim) should close the mirrored session directly
// rather than release anything to the strategy (spec §4.3 Detach).
func (state *handleCleanupState[S]) detachRecord() {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.record = nil
}

// performReturn drives the handle return protocol exactly once (spec
// §4.3): the first caller — whichever of explicit Close/Invalidate or
// the leak backstop gets there first — wins; the other becomes a
// no-op.
//
// Step 1 of the return protocol (spec §4.3) — "if a weak-ref fired but
// the record's live-handle back-reference no longer points to this
// handle, do nothing" — is realized here as a generation comparison:
// ownership of a Record changes hands (and its generation counter
// bumps) exactly at acquisition and at release, so a stale cleanup
// racing a record that has already been reacquired by someone else
// sees a generation mismatch and backs off. AssertionPool exempts this
// check and always returns, per spec.
func (state *handleCleanupState[S]) performReturn() error {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.done {
		return nil
	}
	state.done = true

	record := state.record
	session, hasSession := state.session, state.hasSession

	if record == nil {
		if hasSession {
			_ = session.Close()
		}
		return nil
	}

	if !state.pool.strategy.bypassesOwnershipCheck() && record.currentGeneration() != state.generation {
		return nil
	}

	if hasSession && state.pool.options.ResetOnReturn {
		if err := session.Rollback(); err != nil {
			record.invalidate(err)
		}
	}

	record.clearFairy()
	record.nextGeneration()
	state.pool.listeners.fireCheckin(session, record)
	return state.pool.strategy.release(record)
}
