package pool

import (
	"context"
	"sync"
	"time"
)

// ThreadLocalKeyFunc derives a stable identity for "the current
// thread" from ctx. Go has no implicit thread-local storage (spec
// §4.4's connect() pseudocode and §4.4.2's per-thread slot both assume
// one); callers of a pool configured with UseThreadLocal or the
// Per-Thread-Singleton strategy supply this function — typically
// returning a goroutine-scoped id, a request id, or a worker-pool slot
// number the caller already tracks — stable across nested Connect
// calls on what the caller considers the same logical thread.
type ThreadLocalKeyFunc func(ctx context.Context) any

// perThreadSingletonPool is the Per-Thread-Singleton strategy (spec
// §4.4.2): each logical thread owns at most one record, created lazily
// on first acquire and reused for every later acquire from the same
// thread. Grounded on pkg/client's per-connection session cache
// pattern, re-keyed here by ThreadLocalKeyFunc instead of a connection
// pointer.
type perThreadSingletonPool[S Session] struct {
	factory   *sessionFactory[S]
	listeners *listenerHub[S]
	recycle   time.Duration
	logger    Logger
	threadKey ThreadLocalKeyFunc
	poolSize  int

	mu    sync.Mutex
	slots map[any]*Record[S]
	live  map[*Record[S]]struct{}
}

func newPerThreadSingletonPool[S Session](factory *sessionFactory[S], listeners *listenerHub[S], recycle time.Duration, logger Logger, threadKey ThreadLocalKeyFunc, poolSize int) *perThreadSingletonPool[S] {
	return &perThreadSingletonPool[S]{
		factory:   factory,
		listeners: listeners,
		recycle:   recycle,
		logger:    logger,
		threadKey: threadKey,
		poolSize:  poolSize,
		slots:     make(map[any]*Record[S]),
		live:      make(map[*Record[S]]struct{}),
	}
}

// acquire returns the calling thread's record, creating one on first
// use. If that pushes the process-wide live set past pool_size, extra
// records are evicted arbitrarily (spec §4.4.2 — map iteration order
// stands in for the source's own unspecified eviction order).
func (p *perThreadSingletonPool[S]) acquire(ctx context.Context) (*Record[S], error) {
	key := p.threadKey(ctx)

	p.mu.Lock()
	if r, ok := p.slots[key]; ok {
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	r := newRecord(p.factory, p.listeners, p.recycle, p.logger)

	p.mu.Lock()
	p.slots[key] = r
	p.live[r] = struct{}{}
	var evicted []*Record[S]
	if len(p.live) > p.poolSize {
		for k, candidate := range p.slots {
			if candidate == r {
				continue
			}
			delete(p.slots, k)
			delete(p.live, candidate)
			evicted = append(evicted, candidate)
			if len(p.live) <= p.poolSize {
				break
			}
		}
	}
	p.mu.Unlock()

	for _, candidate := range evicted {
		candidate.invalidate(nil)
	}
	return r, nil
}

// release is a no-op: a Singleton record lives in its thread slot
// until evicted or the pool disposes (spec §4.4.2).
func (p *perThreadSingletonPool[S]) release(record *Record[S]) error { return nil }

func (p *perThreadSingletonPool[S]) dispose() {
	p.mu.Lock()
	records := make([]*Record[S], 0, len(p.live))
	for r := range p.live {
		records = append(records, r)
	}
	p.slots = make(map[any]*Record[S])
	p.live = make(map[*Record[S]]struct{})
	p.mu.Unlock()

	for _, r := range records {
		r.invalidate(nil)
	}
}

// disposeLocal removes just the calling thread's slot (spec §4.4.2's
// dispose_local()), leaving the rest of the live set intact.
func (p *perThreadSingletonPool[S]) disposeLocal(ctx context.Context) {
	key := p.threadKey(ctx)

	p.mu.Lock()
	r, ok := p.slots[key]
	if ok {
		delete(p.slots, key)
		delete(p.live, r)
	}
	p.mu.Unlock()

	if ok {
		r.invalidate(nil)
	}
}

func (p *perThreadSingletonPool[S]) status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{Name: "SingletonPool", Size: p.poolSize, Checked: len(p.live)}
}

func (p *perThreadSingletonPool[S]) bypassesOwnershipCheck() bool { return false }

func (p *perThreadSingletonPool[S]) forbidsInvalidation() bool { return false }

// localDisposer is implemented only by perThreadSingletonPool; Pool's
// DisposeLocal type-asserts its strategy against this to support
// spec §4.4.2's dispose_local() without widening the shared Strategy
// interface for every other variant.
type localDisposer interface {
	disposeLocal(ctx context.Context)
}
