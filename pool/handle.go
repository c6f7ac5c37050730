package pool

import (
	"context"
	"errors"
	"sync"
)

// Handle is a short-lived, reference-counted proxy a caller holds for
// the duration of one or more logical uses of a backend session (spec
// §3, §4.3). Every Handle is bound to exactly one Record for its
// lifetime: once its checkout depth returns to zero the record is
// handed back and the Handle becomes terminal.
//
// Domain operations on the checked-out session are reached through
// Session(), not through promoted methods: a type parameter's
// embedded method set only promotes what its constraint (Session)
// declares, so genuine forwarding of whatever richer interface the
// concrete S satisfies needs the accessor form, per spec §9's note.
type Handle[S Session] struct {
	pool *Pool[S]

	mu         sync.Mutex
	depth      int
	closed     bool
	detached   bool
	record     *Record[S]
	generation uint64
	session    S
	hasSession bool

	detachedInfo map[string]any
	cleanup      *handleCleanupState[S]
}

func newHandle[S Session](p *Pool[S]) *Handle[S] {
	return &Handle[S]{pool: p}
}

// bindRecord gives the handle ownership of record, snapshots the
// record's ownership generation, and registers the leak-reclaim
// backstop (spec §3 "leak-reclaim set").
func (h *Handle[S]) bindRecord(record *Record[S]) {
	gen := record.nextGeneration()
	h.record = record
	h.generation = gen
	h.cleanup = newHandleCleanupState(h.pool, record, gen)
	record.setFairy(h)
	registerLeakCleanup(h, h.cleanup)
}

// Session returns the currently checked-out backend session. It is
// the zero value of S if the handle has never obtained a session;
// after Close, Invalidate or Detach it still returns the last session
// the handle held.
func (h *Handle[S]) Session() S {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// Info returns the record's caller-owned scratch bag (or, once
// detached, the private snapshot taken at detach time). It is cleared
// whenever the underlying record reconnects (spec §3).
func (h *Handle[S]) Info() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.detached {
		return h.detachedInfo
	}
	if h.record == nil {
		return nil
	}
	return h.record.snapshotInfo()
}

// checkout increments the checkout depth and, on the 0->1 transition
// only, fires checkout listeners and resolves Disconnection signals
// with up to one retry (spec §4.3).
func (h *Handle[S]) checkout(ctx context.Context) (*Handle[S], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, errInvalidRequest("closed")
	}

	h.depth++
	if h.depth > 1 {
		return h, nil
	}

	const maxAttempts = 2
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		session, err := h.record.getSession(ctx)
		if err != nil {
			h.depth--
			return nil, err
		}
		h.session = session
		h.hasSession = true
		h.cleanup.setSession(session, true)

		err = h.pool.listeners.fireCheckout(session, h.record, h)
		if err == nil {
			return h, nil
		}

		h.record.invalidate(err)
		if !errors.Is(err, ErrDisconnection) {
			h.depth = 0
			h.hasSession = false
			h.cleanup.setSession(session, false)
			return nil, err
		}
		// Disconnection: loop around, getSession reopens the record.
	}

	h.depth = 0
	h.hasSession = false
	h.closed = true
	return nil, errInvalidRequest("closed")
}

// Close decrements the checkout depth; when it reaches zero, the
// record is handed back to the pool (spec §4.3). Idempotent once the
// handle has reached the terminal state.
func (h *Handle[S]) Close() error {
	h.mu.Lock()
	if h.closed || h.depth == 0 {
		h.mu.Unlock()
		return nil
	}
	h.depth--
	if h.depth > 0 {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	cleanup := h.cleanup
	h.mu.Unlock()

	if cleanup != nil {
		return cleanup.performReturn()
	}
	return nil
}

// Invalidate immediately marks the record invalid and drives the
// return protocol; subsequent operations on this handle fail with
// InvalidRequest("closed") (spec §4.3).
func (h *Handle[S]) Invalidate(cause error) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errInvalidRequest("closed")
	}
	if h.pool.strategy.forbidsInvalidation() {
		h.mu.Unlock()
		return errInvalidRequest("static session does not support invalidation")
	}
	record := h.record
	cleanup := h.cleanup
	h.closed = true
	h.depth = 0
	h.mu.Unlock()

	if record != nil {
		record.invalidate(cause)
	}
	if cleanup != nil {
		return cleanup.performReturn()
	}
	return nil
}

// Detach severs the handle from the pool: the record is returned to
// the strategy immediately with its session cleared (forcing a
// reconnect on the next acquisition), while this handle keeps the live
// session for direct use. A detached handle's eventual Close (or leak
// reclaim) just closes the session instead of returning anything to
// the pool (spec §4.3).
func (h *Handle[S]) Detach() {
	h.mu.Lock()
	if h.closed || h.detached {
		h.mu.Unlock()
		return
	}
	record := h.record
	h.detached = true
	h.record = nil
	if record != nil {
		h.detachedInfo = record.snapshotInfo()
	}
	cleanup := h.cleanup
	h.mu.Unlock()

	if record != nil {
		record.clearSessionForDetach()
		record.nextGeneration()
		if err := h.pool.strategy.release(record); err != nil && h.pool.logger != nil {
			h.pool.logger.Printf("laura-pool: detach release: %v", err)
		}
	}
	if cleanup != nil {
		cleanup.detachRecord()
	}
}
