package wireclient

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// rollbackMethod is the RPC a Conn's Rollback forwards to. It carries
// no request schema of its own — an empty raw payload is enough for a
// backend to reset whatever per-session state it tracks.
const rollbackMethod = "/laura.pool.Backend/Rollback"

// Conn is the reference pool.Session: one gRPC *grpc.ClientConn opened
// against a single backend server and keyspace. It satisfies
// pool.Session directly (Close, Rollback) and exposes Execute for
// arbitrary forwardable operations (spec §3, §6.1) — callers reach it
// through Handle.Session().Execute(...) rather than through anything
// the pool itself defines.
type Conn struct {
	cc       *grpc.ClientConn
	addr     string
	keyspace string
}

// Execute forwards one backend operation. method is the
// fully-qualified gRPC method name the backend exposes (e.g.
// "/laura.pool.Backend/Query"); req and the returned bytes are opaque
// wire payloads — Conn never interprets them, matching spec.md §1's
// framing of the wire protocol as deliberately out of the pool's
// scope. It rides the rawCodec registered in codec.go, the same
// generic-proxy technique grpc-ecosystem/grpc-proxy uses to forward
// calls it was never compiled against.
func (c *Conn) Execute(ctx context.Context, method string, req []byte) ([]byte, error) {
	var reply []byte
	opts := []grpc.CallOption{grpc.CallContentSubtype(rawCodecName)}
	if err := c.cc.Invoke(ctx, method, req, &reply, opts...); err != nil {
		return nil, fmt.Errorf("wireclient: %s: %w", method, err)
	}
	return reply, nil
}

// Close satisfies pool.Session. A *grpc.ClientConn reports a Canceled
// status on a redundant Close; that error is dropped here, so Close is
// safe to call more than once.
func (c *Conn) Close() error {
	if err := c.cc.Close(); err != nil && status.Code(err) != codes.Canceled {
		return err
	}
	return nil
}

// Rollback satisfies pool.Session: a best-effort request that the
// backend reset any in-flight per-session state (spec.md §1's "issues
// a best-effort reset... but does not manage transaction boundaries").
// Errors are returned as-is; swallowing them on return is the pool's
// job (spec §4.3 return protocol step 2), not this Conn's.
func (c *Conn) Rollback() error {
	_, err := c.Execute(context.Background(), rollbackMethod, nil)
	return err
}

// Addr is the server address this Conn was opened against.
func (c *Conn) Addr() string { return c.addr }

// Keyspace is the namespace selected during dial.
func (c *Conn) Keyspace() string { return c.keyspace }
