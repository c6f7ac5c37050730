package pool

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
	"weak"
)

// Logger is the minimal sink the pool writes best-effort diagnostics
// to (record invalidation causes, leak-reclaim activity). The teacher
// repo never reaches for a structured-logging library — it leans on
// bare `log`/`fmt.Printf` throughout — so laura-pool does the same:
// any *log.Logger satisfies this directly.
type Logger interface {
	Printf(format string, v ...any)
}

// Options is a constructed pool's configuration (spec §6.3). Values
// are filled in by hand or via connstring.Parse.
type Options struct {
	// Keyspace is the logical namespace passed to the dialer.
	Keyspace string
	// ServerList is the ordered host:port list the factory round-robins
	// across (§4.1).
	ServerList []string
	// Credentials is opaque authentication material forwarded to the
	// dialer untouched.
	Credentials Credentials

	// Recycle is the max age a record's session may reach before
	// get_session forces a close+reopen. -1 disables recycling; any
	// other value, including zero, enables it (zero forces a reopen on
	// every acquisition) (spec: "seconds, -1 disables").
	Recycle time.Duration

	// UseThreadLocal enables per-thread handle caching in Connect.
	// Go has no implicit thread-local storage, so callers that set this
	// must also set ThreadLocalKey.
	UseThreadLocal bool
	// ThreadLocalKey derives the calling "thread"'s identity from a
	// context.Context. Required when UseThreadLocal is set, and always
	// required by NewSingletonPool (spec §4.4.2 forces thread-local
	// mode).
	ThreadLocalKey ThreadLocalKeyFunc

	// ResetOnReturn calls Rollback on a session before it's returned to
	// the strategy.
	ResetOnReturn bool

	// Listeners are registered against the pool's listener hub at
	// construction; each is matched against the observer interfaces it
	// implements (spec §4.5).
	Listeners []any

	// LoggingName is a prefix embedded in emitted log lines when Logger
	// is left nil.
	LoggingName string
	// Echo toggles verbose event logging. Exercised by callers wiring
	// their own listeners; the pool core does not read it.
	Echo bool
	// Logger overrides the default log.Logger-backed sink.
	Logger Logger

	// PoolSize, MaxOverflow, Timeout configure the Bounded-Queue
	// strategy only (spec §4.4.1); PoolSize also bounds
	// Per-Thread-Singleton's process-wide live set (spec §4.4.2).
	PoolSize    int
	MaxOverflow int
	Timeout     time.Duration
}

// DefaultOptions returns the baseline configuration Bounded-Queue pools
// are built from; callers override individual fields.
func DefaultOptions() Options {
	return Options{
		Recycle:       -1,
		ResetOnReturn: true,
		PoolSize:      5,
		MaxOverflow:   10,
		Timeout:       30 * time.Second,
	}
}

// Pool is the constructed connection pool (spec §2-§9). It is generic
// over the backend Session type; construct one with NewBoundedQueuePool,
// NewSingletonPool, NewNullPool, NewStaticPool, or NewAssertionPool.
type Pool[S Session] struct {
	dialer  Dialer[S]
	options Options
	logger  Logger

	factory   *sessionFactory[S]
	listeners *listenerHub[S]
	strategy  Strategy[S]

	buildStrategy func(core *Pool[S]) Strategy[S]

	threadMu      sync.Mutex
	threadHandles map[any]weak.Pointer[Handle[S]]
}

func newPoolCore[S Session](dialer Dialer[S], opts Options) (*Pool[S], error) {
	if len(opts.ServerList) == 0 {
		return nil, errInvalidRequest("server_list must not be empty")
	}
	if opts.UseThreadLocal && opts.ThreadLocalKey == nil {
		return nil, errInvalidRequest("use_threadlocal requires a ThreadLocalKey")
	}

	logger := opts.Logger
	if logger == nil {
		prefix := "laura-pool"
		if opts.LoggingName != "" {
			prefix = opts.LoggingName
		}
		logger = log.New(log.Writer(), prefix+": ", log.LstdFlags)
	}

	p := &Pool[S]{
		dialer:        dialer,
		options:       opts,
		logger:        logger,
		threadHandles: make(map[any]weak.Pointer[Handle[S]]),
	}
	p.factory = newSessionFactory(dialer, opts.ServerList, opts.Keyspace, opts.Credentials)
	p.listeners = newListenerHub[S]()
	for _, l := range opts.Listeners {
		p.listeners.add(l)
	}
	return p, nil
}

// NewBoundedQueuePool constructs a pool using the Bounded-Queue
// strategy (spec §4.4.1), the dominant variant.
func NewBoundedQueuePool[S Session](dialer Dialer[S], opts Options) (*Pool[S], error) {
	p, err := newPoolCore(dialer, opts)
	if err != nil {
		return nil, err
	}
	p.buildStrategy = func(core *Pool[S]) Strategy[S] {
		return newBoundedQueuePool[S](core.factory, core.listeners, core.options.Recycle, core.logger, core.options.PoolSize, core.options.MaxOverflow, core.options.Timeout)
	}
	p.strategy = p.buildStrategy(p)
	return p, nil
}

// NewSingletonPool constructs a pool using the Per-Thread-Singleton
// strategy (spec §4.4.2). It forces UseThreadLocal on, overriding
// whatever Options carried.
func NewSingletonPool[S Session](dialer Dialer[S], opts Options, threadKey ThreadLocalKeyFunc) (*Pool[S], error) {
	if threadKey == nil {
		return nil, errInvalidRequest("NewSingletonPool requires a ThreadLocalKey")
	}
	opts.UseThreadLocal = true
	opts.ThreadLocalKey = threadKey
	p, err := newPoolCore(dialer, opts)
	if err != nil {
		return nil, err
	}
	p.buildStrategy = func(core *Pool[S]) Strategy[S] {
		return newPerThreadSingletonPool[S](core.factory, core.listeners, core.options.Recycle, core.logger, threadKey, core.options.PoolSize)
	}
	p.strategy = p.buildStrategy(p)
	return p, nil
}

// NewNullPool constructs a pool using the Null strategy (spec §4.4.3):
// every acquire opens, every release closes.
func NewNullPool[S Session](dialer Dialer[S], opts Options) (*Pool[S], error) {
	p, err := newPoolCore(dialer, opts)
	if err != nil {
		return nil, err
	}
	p.buildStrategy = func(core *Pool[S]) Strategy[S] {
		return newNullPool[S](core.factory, core.listeners, core.options.Recycle, core.logger)
	}
	p.strategy = p.buildStrategy(p)
	return p, nil
}

// NewStaticPool constructs a pool using the Static strategy (spec
// §4.4.4): a single eternally shared session.
func NewStaticPool[S Session](dialer Dialer[S], opts Options) (*Pool[S], error) {
	p, err := newPoolCore(dialer, opts)
	if err != nil {
		return nil, err
	}
	p.buildStrategy = func(core *Pool[S]) Strategy[S] {
		return newStaticPool[S](core.factory, core.listeners, core.logger)
	}
	p.strategy = p.buildStrategy(p)
	return p, nil
}

// NewAssertionPool constructs a pool using the Assertion strategy
// (spec §4.4.5), for catching leaked or double-returned handles during
// development.
func NewAssertionPool[S Session](dialer Dialer[S], opts Options) (*Pool[S], error) {
	p, err := newPoolCore(dialer, opts)
	if err != nil {
		return nil, err
	}
	p.buildStrategy = func(core *Pool[S]) Strategy[S] {
		return newAssertionPool[S](core.factory, core.listeners, core.options.Recycle, core.logger)
	}
	p.strategy = p.buildStrategy(p)
	return p, nil
}

func (p *Pool[S]) newCheckedOutHandle(ctx context.Context) (*Handle[S], error) {
	record, err := p.strategy.acquire(ctx)
	if err != nil {
		return nil, err
	}
	h := newHandle(p)
	h.bindRecord(record)
	return h.checkout(ctx)
}

// Connect is the pool's front door (spec §4.4's shared connect()
// pseudocode). Without thread-local caching it always returns a fresh
// Handle wrapping a freshly acquired record. With it, a live handle
// already cached for the caller's derived thread identity is reused
// (its checkout depth counter tracks the nesting), otherwise a new one
// is created and weakly remembered.
func (p *Pool[S]) Connect(ctx context.Context) (*Handle[S], error) {
	if !p.options.UseThreadLocal {
		return p.newCheckedOutHandle(ctx)
	}

	key := p.options.ThreadLocalKey(ctx)

	p.threadMu.Lock()
	if wp, ok := p.threadHandles[key]; ok {
		if h := wp.Value(); h != nil {
			h.mu.Lock()
			live := !h.closed
			h.mu.Unlock()
			if live {
				p.threadMu.Unlock()
				return h.checkout(ctx)
			}
		}
		delete(p.threadHandles, key)
	}
	p.threadMu.Unlock()

	record, err := p.strategy.acquire(ctx)
	if err != nil {
		return nil, err
	}
	h := newHandle(p)
	h.bindRecord(record)

	p.threadMu.Lock()
	p.threadHandles[key] = weak.Make(h)
	p.threadMu.Unlock()

	return h.checkout(ctx)
}

// UniqueConnection always returns a fresh Handle, bypassing
// thread-local caching (spec §6.4).
func (p *Pool[S]) UniqueConnection(ctx context.Context) (*Handle[S], error) {
	return p.newCheckedOutHandle(ctx)
}

// Dispose tears down every record the strategy currently holds and
// forgets all cached thread-local handles (spec §4.6/§6.4).
func (p *Pool[S]) Dispose() {
	p.strategy.dispose()
	p.threadMu.Lock()
	p.threadHandles = make(map[any]weak.Pointer[Handle[S]])
	p.threadMu.Unlock()
}

// DisposeLocal removes just the calling thread's cached handle and, for
// a Singleton pool, its strategy-level slot too (spec §4.4.2's
// dispose_local()). It is a no-op for strategies that don't track
// thread-local state.
func (p *Pool[S]) DisposeLocal(ctx context.Context) {
	if ld, ok := p.strategy.(localDisposer); ok {
		ld.disposeLocal(ctx)
	}
	if p.options.UseThreadLocal {
		key := p.options.ThreadLocalKey(ctx)
		p.threadMu.Lock()
		delete(p.threadHandles, key)
		p.threadMu.Unlock()
	}
}

// Recreate returns a new pool with identical configuration and the
// same strategy variant, starting from empty strategy state (spec
// §6.4, and §9's resolved open question: no positional creator
// override, just "same config").
func (p *Pool[S]) Recreate() (*Pool[S], error) {
	np, err := newPoolCore(p.dialer, p.options)
	if err != nil {
		return nil, err
	}
	np.buildStrategy = p.buildStrategy
	np.strategy = np.buildStrategy(np)
	return np, nil
}

// Status renders the strategy's current bookkeeping as a human string
// (spec §6.4: "status() -> string").
func (p *Pool[S]) Status() string {
	s := p.strategy.status()
	return fmt.Sprintf("%s size=%d checked_out=%d overflow=%d", s.Name, s.Size, s.Checked, s.Overflow)
}

// AddListener registers obs against every observer interface it
// satisfies (spec §4.5).
func (p *Pool[S]) AddListener(obs any) {
	p.listeners.add(obs)
}
