package pool

import "context"

// Credentials is authentication material handed to a Dialer. The pool
// never inspects it; it exists only to be threaded through to the
// backend untouched.
type Credentials any

// Dialer opens a new backend session against a single server address.
// Implementations own the entire wire protocol: transport connect,
// handshake, authentication and keyspace selection all happen inside
// Dial. A Dial failure anywhere in that sequence must be returned as a
// plain error; the factory treats any error from Dial as a fail
// condition and moves on to the next server in the list.
type Dialer[S Session] interface {
	Dial(ctx context.Context, addr, keyspace string, creds Credentials) (S, error)
}
