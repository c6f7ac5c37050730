package pool

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Scenario A: pool_size=2, max_overflow=0, timeout=200ms — a third
// concurrent acquire must wait and then fail with Timeout.
func TestBoundedQueuePool_ScenarioA_ThirdAcquireTimesOut(t *testing.T) {
	dialer := newFakeDialer()
	opts := testOptions("a:1")
	opts.PoolSize = 2
	opts.MaxOverflow = 0
	opts.Timeout = 200 * time.Millisecond

	p, err := NewBoundedQueuePool[*fakeSession](dialer, opts)
	if err != nil {
		t.Fatalf("NewBoundedQueuePool: %v", err)
	}
	defer p.Dispose()

	h1, err := p.UniqueConnection(context.Background())
	if err != nil {
		t.Fatalf("acquire h1: %v", err)
	}
	h2, err := p.UniqueConnection(context.Background())
	if err != nil {
		t.Fatalf("acquire h2: %v", err)
	}

	start := time.Now()
	_, err = p.UniqueConnection(context.Background())
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected third acquire to fail")
	}
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected Timeout, got %v", err)
	}
	if elapsed < opts.Timeout {
		t.Errorf("expected the wait to last at least the configured timeout (%s), took %s", opts.Timeout, elapsed)
	}

	_ = h1.Close()
	_ = h2.Close()
}

// max_overflow=0 never creates beyond pool_size, even when a waiter
// would rather have a new record than wait for a release.
func TestBoundedQueuePool_MaxOverflowZeroNeverExceedsPoolSize(t *testing.T) {
	dialer := newFakeDialer()
	opts := testOptions("a:1")
	opts.PoolSize = 1
	opts.MaxOverflow = 0
	opts.Timeout = 50 * time.Millisecond

	p, err := NewBoundedQueuePool[*fakeSession](dialer, opts)
	if err != nil {
		t.Fatalf("NewBoundedQueuePool: %v", err)
	}
	defer p.Dispose()

	h1, err := p.UniqueConnection(context.Background())
	if err != nil {
		t.Fatalf("acquire h1: %v", err)
	}

	if _, err := p.UniqueConnection(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected Timeout with max_overflow=0 at capacity, got %v", err)
	}
	if dialer.dialCount.Load() != 1 {
		t.Errorf("expected exactly one dial (no overflow creation), got %d", dialer.dialCount.Load())
	}

	_ = h1.Close()
}

// Boundary: pool_size=0, max_overflow=-1 behaves like an unbounded
// create-on-demand pool (effectively NullPool), since tryCreate never
// refuses when max_overflow is negative.
func TestBoundedQueuePool_ZeroSizeUnboundedOverflowNeverWaits(t *testing.T) {
	dialer := newFakeDialer()
	opts := testOptions("a:1")
	opts.PoolSize = 0
	opts.MaxOverflow = -1
	opts.Timeout = 10 * time.Millisecond

	p, err := NewBoundedQueuePool[*fakeSession](dialer, opts)
	if err != nil {
		t.Fatalf("NewBoundedQueuePool: %v", err)
	}
	defer p.Dispose()

	for i := 0; i < 5; i++ {
		h, err := p.UniqueConnection(context.Background())
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		if err := h.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
}

// Scenario B: pool_size=1, reset_on_return=true — closing h1 rolls
// back its session and h2 reuses the identical session object.
func TestBoundedQueuePool_ScenarioB_ResetOnReturnReusesSession(t *testing.T) {
	dialer := newFakeDialer()
	opts := testOptions("a:1")
	opts.PoolSize = 1
	opts.MaxOverflow = 0
	opts.ResetOnReturn = true

	p, err := NewBoundedQueuePool[*fakeSession](dialer, opts)
	if err != nil {
		t.Fatalf("NewBoundedQueuePool: %v", err)
	}
	defer p.Dispose()

	h1, err := p.UniqueConnection(context.Background())
	if err != nil {
		t.Fatalf("acquire h1: %v", err)
	}
	session1 := h1.Session()

	if err := h1.Close(); err != nil {
		t.Fatalf("close h1: %v", err)
	}

	h2, err := p.UniqueConnection(context.Background())
	if err != nil {
		t.Fatalf("acquire h2: %v", err)
	}
	defer h2.Close()

	if h2.Session() != session1 {
		t.Error("expected h2 to reuse h1's session identity")
	}
	if session1.rollbackCount != 1 {
		t.Errorf("expected exactly one rollback, got %d", session1.rollbackCount)
	}
}

// Scenario C: the factory fails the first server and succeeds on the
// second; the cursor advances once per attempt, so the next
// acquisition starts its round-robin scan at B.
func TestFactory_ScenarioC_FailoverAdvancesCursor(t *testing.T) {
	dialer := newFakeDialer()
	dialer.failAddr("A")

	opts := testOptions("A", "B")
	opts.PoolSize = 5
	opts.MaxOverflow = 0

	p, err := NewBoundedQueuePool[*fakeSession](dialer, opts)
	if err != nil {
		t.Fatalf("NewBoundedQueuePool: %v", err)
	}
	defer p.Dispose()

	h, err := p.UniqueConnection(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer h.Close()

	// A is permanently broken, so every subsequent acquisition must
	// also land on B — if the cursor wrapped back to A first every
	// time, this would still succeed but only after retrying A, which
	// the dial count below would reveal.
	dialsBefore := dialer.dialCount.Load()
	h2, err := p.UniqueConnection(context.Background())
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	defer h2.Close()
	dialsAfter := dialer.dialCount.Load()

	if dialsAfter-dialsBefore != 1 {
		t.Errorf("expected the second acquire to succeed on its first dial (cursor starting past A), got %d dials", dialsAfter-dialsBefore)
	}
}

func TestFactory_NoServerAvailable(t *testing.T) {
	dialer := newFakeDialer()
	dialer.setFailAll(true)

	opts := testOptions("A", "B")
	opts.PoolSize = 1
	opts.MaxOverflow = 0

	p, err := NewBoundedQueuePool[*fakeSession](dialer, opts)
	if err != nil {
		t.Fatalf("NewBoundedQueuePool: %v", err)
	}
	defer p.Dispose()

	_, err = p.UniqueConnection(context.Background())
	if !errors.Is(err, ErrNoServerAvailable) {
		t.Fatalf("expected NoServerAvailable, got %v", err)
	}
}

// Scenario D: a checkout listener raises Disconnection on the first
// attempt and succeeds on the second; the handle is still returned,
// having reopened exactly once.
func TestBoundedQueuePool_ScenarioD_DisconnectionRetriesOnce(t *testing.T) {
	dialer := newFakeDialer()
	listener := &flakyCheckoutListener{failUntilAttempt: 2}
	opts := testOptions("a:1")
	opts.PoolSize = 1
	opts.Listeners = []any{listener}

	p, err := NewBoundedQueuePool[*fakeSession](dialer, opts)
	if err != nil {
		t.Fatalf("NewBoundedQueuePool: %v", err)
	}
	defer p.Dispose()

	h, err := p.UniqueConnection(context.Background())
	if err != nil {
		t.Fatalf("expected checkout to succeed after one retry, got: %v", err)
	}
	defer h.Close()

	if listener.attempts != 2 {
		t.Errorf("expected exactly two checkout attempts, got %d", listener.attempts)
	}
	if dialer.dialCount.Load() != 2 {
		t.Errorf("expected the record to reopen once (two total dials), got %d", dialer.dialCount.Load())
	}
}

// A failed dial on the overflow-creation path must give back the
// overflow slot it optimistically reserved, not leave Status()
// reporting capacity nothing is actually using.
func TestBoundedQueuePool_FailedOverflowCreateDoesNotLeakCapacity(t *testing.T) {
	dialer := newFakeDialer()
	dialer.setFailAll(true)

	opts := testOptions("a:1")
	opts.PoolSize = 1
	opts.MaxOverflow = 1

	p, err := NewBoundedQueuePool[*fakeSession](dialer, opts)
	if err != nil {
		t.Fatalf("NewBoundedQueuePool: %v", err)
	}
	defer p.Dispose()

	if _, err := p.UniqueConnection(context.Background()); err == nil {
		t.Fatal("expected the acquire to fail since every dial fails")
	}

	snap, err := statusOf(p)
	if err != nil {
		t.Fatalf("parsing status: %v", err)
	}
	if snap.overflow != 0 || snap.checked != 0 {
		t.Errorf("expected a failed overflow-path create to leave overflow and checked_out at 0, got overflow=%d checked_out=%d", snap.overflow, snap.checked)
	}

	// A subsequent, now-successful dial must still be grantable.
	dialer.setFailAll(false)
	h, err := p.UniqueConnection(context.Background())
	if err != nil {
		t.Fatalf("expected acquire to succeed once dialing works again: %v", err)
	}
	_ = h.Close()
}

type flakyCheckoutListener struct {
	failUntilAttempt int
	attempts         int
}

func (l *flakyCheckoutListener) OnCheckout(session *fakeSession, record *Record[*fakeSession], handle *Handle[*fakeSession]) error {
	l.attempts++
	if l.attempts < l.failUntilAttempt {
		return Disconnection("flaky", errors.New("simulated disconnect"))
	}
	return nil
}
