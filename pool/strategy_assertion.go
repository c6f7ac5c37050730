package pool

import (
	"context"
	"sync"
	"time"
)

// assertionPool is the Assertion strategy (spec §4.4.5): at most one
// record may be checked out at a time, tracked by a plain boolean.
// Intended for catching leaked handles during development — a second
// concurrent acquire, or a release when nothing is out, is a usage bug
// and is surfaced as an Assertion error rather than tolerated.
//
// It is the one strategy that opts out of the leak-reclaim backstop's
// ownership check (bypassesOwnershipCheck): the whole point of this
// strategy is to make a double-return visible, not to have the
// generation counter quietly absorb it.
type assertionPool[S Session] struct {
	factory   *sessionFactory[S]
	listeners *listenerHub[S]
	recycle   time.Duration
	logger    Logger

	mu       sync.Mutex
	checked  bool
	record   *Record[S]
}

func newAssertionPool[S Session](factory *sessionFactory[S], listeners *listenerHub[S], recycle time.Duration, logger Logger) *assertionPool[S] {
	return &assertionPool[S]{factory: factory, listeners: listeners, recycle: recycle, logger: logger}
}

func (p *assertionPool[S]) acquire(ctx context.Context) (*Record[S], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.checked {
		return nil, errAssertion("a record is already checked out")
	}
	if p.record == nil {
		p.record = newRecord(p.factory, p.listeners, p.recycle, p.logger)
	}
	p.checked = true
	return p.record, nil
}

func (p *assertionPool[S]) release(record *Record[S]) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.checked {
		return errAssertion("release called but nothing is checked out")
	}
	p.checked = false
	return nil
}

func (p *assertionPool[S]) dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.record != nil {
		p.record.invalidate(nil)
		p.record = nil
	}
	p.checked = false
}

func (p *assertionPool[S]) status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	checked := 0
	if p.checked {
		checked = 1
	}
	return Status{Name: "AssertionPool", Size: 1, Checked: checked}
}

func (p *assertionPool[S]) bypassesOwnershipCheck() bool { return true }

func (p *assertionPool[S]) forbidsInvalidation() bool { return false }
