package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

// fakeSession is a minimal pool.Session double: it counts Close and
// Rollback calls and can be made to fail either one, the same shape
// the teacher's own in-memory test fakes use for pkg/database's
// session pool.
type fakeSession struct {
	id int64

	mu         sync.Mutex
	closed     bool
	closeCount int
	rollbackCount int

	rollbackErr error
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closeCount++
	return nil
}

func (s *fakeSession) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rollbackCount++
	return s.rollbackErr
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeDialer hands out fresh *fakeSessions and can be configured to
// fail dialing specific addresses, or all of them.
type fakeDialer struct {
	counter   atomic.Int64
	mu        sync.Mutex
	failAddrs map[string]bool
	failAll   bool
	dialCount atomic.Int64
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{failAddrs: make(map[string]bool)}
}

func (d *fakeDialer) Dial(ctx context.Context, addr, keyspace string, creds Credentials) (*fakeSession, error) {
	d.dialCount.Add(1)

	d.mu.Lock()
	fail := d.failAll || d.failAddrs[addr]
	d.mu.Unlock()

	if fail {
		return nil, errInvalidRequest("fakeDialer: dial refused for " + addr)
	}

	return &fakeSession{id: d.counter.Add(1)}, nil
}

func (d *fakeDialer) failAddr(addr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAddrs[addr] = true
}

func (d *fakeDialer) setFailAll(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failAll = v
}

// recordingListener implements every observer interface and records
// call order, for assertions about invariant 4 (first_connect fires
// once, strictly before connect).
type recordingListener struct {
	mu     sync.Mutex
	events []string
}

func (l *recordingListener) record(event string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingListener) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func (l *recordingListener) OnFirstConnect(session *fakeSession, record *Record[*fakeSession]) {
	l.record("first_connect")
}

func (l *recordingListener) OnConnect(session *fakeSession, record *Record[*fakeSession]) {
	l.record("connect")
}

func (l *recordingListener) OnCheckout(session *fakeSession, record *Record[*fakeSession], handle *Handle[*fakeSession]) error {
	l.record("checkout")
	return nil
}

func (l *recordingListener) OnCheckin(session *fakeSession, record *Record[*fakeSession]) {
	l.record("checkin")
}

func testOptions(servers ...string) Options {
	opts := DefaultOptions()
	opts.ServerList = servers
	opts.Keyspace = "test"
	return opts
}
