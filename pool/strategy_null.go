package pool

import (
	"context"
	"time"
)

// nullPool is the Null strategy (spec §4.4.3): every acquire creates a
// fresh record, every release closes it. No idle store, no recycling,
// no invalidation tracking — for callers who want a pool interface but
// per-use sessions.
type nullPool[S Session] struct {
	factory   *sessionFactory[S]
	listeners *listenerHub[S]
	recycle   time.Duration
	logger    Logger
}

func newNullPool[S Session](factory *sessionFactory[S], listeners *listenerHub[S], recycle time.Duration, logger Logger) *nullPool[S] {
	return &nullPool[S]{factory: factory, listeners: listeners, recycle: recycle, logger: logger}
}

func (p *nullPool[S]) acquire(ctx context.Context) (*Record[S], error) {
	return newRecord(p.factory, p.listeners, p.recycle, p.logger), nil
}

func (p *nullPool[S]) release(record *Record[S]) error {
	record.invalidate(nil)
	return nil
}

func (p *nullPool[S]) dispose() {}

func (p *nullPool[S]) status() Status {
	return Status{Name: "NullPool"}
}

func (p *nullPool[S]) bypassesOwnershipCheck() bool { return false }

func (p *nullPool[S]) forbidsInvalidation() bool { return false }
