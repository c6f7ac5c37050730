package pool

import (
	"context"
	"sync/atomic"
)

// sessionFactory opens backend sessions against a server list,
// round-robining the starting index across calls (spec §4.1). The
// cursor advances exactly once per attempted creation, independent of
// outcome; per spec §9's open question about the source's
// `_list_position` cursor, it is a plain atomic counter with no extra
// fencing, so two concurrent opens may race onto the same starting
// server. That weak round-robin is the accepted semantics, not a bug.
type sessionFactory[S Session] struct {
	dialer   Dialer[S]
	servers  []string
	keyspace string
	creds    Credentials
	cursor   atomic.Uint64
}

func newSessionFactory[S Session](dialer Dialer[S], servers []string, keyspace string, creds Credentials) *sessionFactory[S] {
	return &sessionFactory[S]{
		dialer:   dialer,
		servers:  servers,
		keyspace: keyspace,
		creds:    creds,
	}
}

// open tries each configured server in round-robin order starting from
// the current cursor, returning the first session that opens
// successfully. If none opens, it fails with NoServerAvailable (spec
// §4.1, §6.2).
func (f *sessionFactory[S]) open(ctx context.Context) (S, error) {
	var zero S

	n := len(f.servers)
	if n == 0 {
		return zero, errNoServerAvailable(nil, nil)
	}

	start := int(f.cursor.Add(1)-1) % n

	var lastErr error
	for i := 0; i < n; i++ {
		addr := f.servers[(start+i)%n]
		session, err := f.dialer.Dial(ctx, addr, f.keyspace, f.creds)
		if err == nil {
			return session, nil
		}
		lastErr = err
	}

	return zero, errNoServerAvailable(f.servers, lastErr)
}
