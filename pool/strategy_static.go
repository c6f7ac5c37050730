package pool

import (
	"context"
	"sync"
)

// staticPool is the Static strategy (spec §4.4.4): a single, eternally
// shared record is returned for every acquire; release is a no-op;
// dispose closes the one session. No recycling, no invalidation — the
// record is built with recycle disabled regardless of the pool's
// configured Recycle option, since a statically shared session is
// never meant to age out from under concurrent holders.
type staticPool[S Session] struct {
	once   sync.Once
	record *Record[S]

	factory   *sessionFactory[S]
	listeners *listenerHub[S]
	logger    Logger
}

func newStaticPool[S Session](factory *sessionFactory[S], listeners *listenerHub[S], logger Logger) *staticPool[S] {
	return &staticPool[S]{factory: factory, listeners: listeners, logger: logger}
}

func (p *staticPool[S]) acquire(ctx context.Context) (*Record[S], error) {
	p.once.Do(func() {
		p.record = newRecord(p.factory, p.listeners, -1, p.logger)
	})
	return p.record, nil
}

func (p *staticPool[S]) release(record *Record[S]) error { return nil }

func (p *staticPool[S]) dispose() {
	if p.record != nil {
		p.record.invalidate(nil)
	}
}

func (p *staticPool[S]) status() Status {
	return Status{Name: "StaticPool", Size: 1}
}

func (p *staticPool[S]) bypassesOwnershipCheck() bool { return false }

func (p *staticPool[S]) forbidsInvalidation() bool { return true }
