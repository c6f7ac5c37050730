package pool

import (
	"sync"
	"sync/atomic"
)

// FirstConnectObserver is notified the first time any record in a pool
// opens its backend session. The sequence fires at most once per pool,
// strictly before any ConnectObserver sees that same event (spec
// §4.5, invariant 4).
type FirstConnectObserver[S Session] interface {
	OnFirstConnect(session S, record *Record[S])
}

// ConnectObserver is notified every time a record (re)opens its
// backend session, including the first time.
type ConnectObserver[S Session] interface {
	OnConnect(session S, record *Record[S])
}

// CheckoutObserver is notified on the 0->1 transition of a handle's
// checkout depth. Returning an error satisfying errors.Is(err,
// ErrDisconnection) (see Disconnection) asks the pool to invalidate
// the record and retry once (spec §4.3).
type CheckoutObserver[S Session] interface {
	OnCheckout(session S, record *Record[S], handle *Handle[S]) error
}

// CheckinObserver is notified when a handle's record is handed back to
// the strategy (spec §4.3 return protocol step 4).
type CheckinObserver[S Session] interface {
	OnCheckin(session S, record *Record[S])
}

// listenerHub holds the four ordered observer sequences (spec §3, §4.5).
// Per spec §5 ("the listener registries are written only at
// add_listener time... reads are lock-free"), each sequence is an
// atomic.Pointer to an immutable slice: add() copy-on-writes a new
// slice under addMu, every fire path loads the current slice without
// taking a lock.
type listenerHub[S Session] struct {
	addMu sync.Mutex

	firstConnect      atomic.Pointer[[]FirstConnectObserver[S]]
	firstConnectFired atomic.Bool

	connect  atomic.Pointer[[]ConnectObserver[S]]
	checkout atomic.Pointer[[]CheckoutObserver[S]]
	checkin  atomic.Pointer[[]CheckinObserver[S]]
}

func newListenerHub[S Session]() *listenerHub[S] {
	h := &listenerHub[S]{}
	fc := []FirstConnectObserver[S]{}
	h.firstConnect.Store(&fc)
	c := []ConnectObserver[S]{}
	h.connect.Store(&c)
	co := []CheckoutObserver[S]{}
	h.checkout.Store(&co)
	ci := []CheckinObserver[S]{}
	h.checkin.Store(&ci)
	return h
}

// add registers obs under every observer interface it satisfies (spec
// §4.5: "matched on capability"). A single value may land in more than
// one sequence.
func (h *listenerHub[S]) add(obs any) {
	h.addMu.Lock()
	defer h.addMu.Unlock()

	if o, ok := obs.(FirstConnectObserver[S]); ok {
		cur := *h.firstConnect.Load()
		next := append(append([]FirstConnectObserver[S]{}, cur...), o)
		h.firstConnect.Store(&next)
	}
	if o, ok := obs.(ConnectObserver[S]); ok {
		cur := *h.connect.Load()
		next := append(append([]ConnectObserver[S]{}, cur...), o)
		h.connect.Store(&next)
	}
	if o, ok := obs.(CheckoutObserver[S]); ok {
		cur := *h.checkout.Load()
		next := append(append([]CheckoutObserver[S]{}, cur...), o)
		h.checkout.Store(&next)
	}
	if o, ok := obs.(CheckinObserver[S]); ok {
		cur := *h.checkin.Load()
		next := append(append([]CheckinObserver[S]{}, cur...), o)
		h.checkin.Store(&next)
	}
}

// fireConnect fires first_connect (once per pool, total order before
// any connect) and then connect, synchronously, in registration order.
func (h *listenerHub[S]) fireConnect(session S, record *Record[S]) {
	if h.firstConnectFired.CompareAndSwap(false, true) {
		for _, o := range *h.firstConnect.Load() {
			o.OnFirstConnect(session, record)
		}
	}
	for _, o := range *h.connect.Load() {
		o.OnConnect(session, record)
	}
}

// fireCheckout fires checkout observers in order, stopping at (and
// returning) the first error, whether or not it is a Disconnection
// signal.
func (h *listenerHub[S]) fireCheckout(session S, record *Record[S], handle *Handle[S]) error {
	for _, o := range *h.checkout.Load() {
		if err := o.OnCheckout(session, record, handle); err != nil {
			return err
		}
	}
	return nil
}

func (h *listenerHub[S]) fireCheckin(session S, record *Record[S]) {
	for _, o := range *h.checkin.Load() {
		o.OnCheckin(session, record)
	}
}
