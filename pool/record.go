package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
	"weak"
)

// Record is the pool-owned, long-lived holder of one backend session
// and its metadata (spec §3, §4.2). It is exclusively owned by the
// pool: callers only ever see one through a Handle.
//
// generation counts how many times ownership of this record has
// changed hands (acquired by a strategy and wrapped in a fresh Handle,
// or handed back). A Handle snapshots generation at the moment it
// takes ownership; the leak reclaimer compares its snapshot against
// the live value to decide whether it is still the rightful owner
// before running the return protocol (spec §4.3 step 1).
type Record[S Session] struct {
	factory   *sessionFactory[S]
	listeners *listenerHub[S]
	recycle   time.Duration
	logger    Logger

	mu         sync.Mutex
	session    S
	hasSession bool
	startTime  time.Time
	info       map[string]any

	fairy      weak.Pointer[Handle[S]]
	generation atomic.Uint64
}

func newRecord[S Session](factory *sessionFactory[S], listeners *listenerHub[S], recycle time.Duration, logger Logger) *Record[S] {
	return &Record[S]{
		factory:   factory,
		listeners: listeners,
		recycle:   recycle,
		logger:    logger,
		info:      make(map[string]any),
	}
}

// getSession returns the held session, opening it if it is currently
// none, or recycling (close + reopen + clear info) if it has aged past
// the pool's recycle threshold (spec §4.2, invariant 6).
func (r *Record[S]) getSession(ctx context.Context) (S, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hasSession && r.recycle != -1 && time.Since(r.startTime) > r.recycle {
		r.closeLocked()
	}

	if !r.hasSession {
		session, err := r.factory.open(ctx)
		if err != nil {
			var zero S
			return zero, err
		}
		r.session = session
		r.hasSession = true
		r.startTime = time.Now()
		r.info = make(map[string]any)
		if r.listeners != nil {
			r.listeners.fireConnect(session, r)
		}
	}

	return r.session, nil
}

// invalidate best-effort closes the held session (if any), swallowing
// errors, and logs the cause's class and message (spec §4.2).
func (r *Record[S]) invalidate(cause error) {
	r.mu.Lock()
	r.closeLocked()
	r.mu.Unlock()

	if cause != nil && r.logger != nil {
		r.logger.Printf("laura-pool: record invalidated: %T: %v", cause, cause)
	}
}

// closeLocked best-effort closes the held session. Only the Close
// error is swallowed here; a panic escaping Close (e.g. from a fatal
// runtime condition) is never recovered and propagates, per spec §7's
// "fatal interrupts always propagate, even inside cleanup."
func (r *Record[S]) closeLocked() {
	if !r.hasSession {
		return
	}
	_ = r.session.Close()
	var zero S
	r.session = zero
	r.hasSession = false
}

// snapshotInfo returns a shallow copy of the record's scratch info bag,
// used by Handle.Detach to give the caller a private copy before the
// record is returned to the strategy (spec §4.3).
func (r *Record[S]) snapshotInfo() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := make(map[string]any, len(r.info))
	for k, v := range r.info {
		cp[k] = v
	}
	return cp
}

// clearSessionForDetach clears the record's session slot without
// closing it: the detaching Handle keeps the live session for its own
// direct use, while the record is left in the "none" state so the
// strategy reopens a fresh session on its next acquisition (spec §4.3
// Detach).
func (r *Record[S]) clearSessionForDetach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero S
	r.session = zero
	r.hasSession = false
}

// setFairy records a weak back-reference to the handle that currently
// owns this record (spec §3's "fairy" — the record's pointer to its
// live handle). It exists for fidelity with the source's data model;
// correctness of the return protocol itself rests on the generation
// counter below, not on this pointer's identity.
func (r *Record[S]) setFairy(h *Handle[S]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fairy = weak.Make(h)
}

// clearFairy drops the back-reference once a record has been handed
// back to the strategy.
func (r *Record[S]) clearFairy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fairy = weak.Pointer[Handle[S]]{}
}

func (r *Record[S]) currentGeneration() uint64 { return r.generation.Load() }

// nextGeneration bumps and returns the new generation, called exactly
// once per ownership transfer: when a strategy wraps the record in a
// fresh Handle, and when the record is handed back.
func (r *Record[S]) nextGeneration() uint64 { return r.generation.Add(1) }
