package wireclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	poolcreds "github.com/mnohosten/laura-pool/credentials"
	"github.com/mnohosten/laura-pool/pool"
)

// DialerConfig configures the gRPC transport Dialer opens for every
// server in the pool's server list. Mirrors
// pkg/cluster/server.Config's keepalive fields, applied client-side
// instead of server-side.
type DialerConfig struct {
	KeepAliveInterval time.Duration
	KeepAliveTimeout  time.Duration
	HandshakeTimeout  time.Duration
}

// DefaultDialerConfig returns the keepalive/timeout defaults a Dialer
// built with a zero DialerConfig falls back to.
func DefaultDialerConfig() DialerConfig {
	return DialerConfig{
		KeepAliveInterval: 30 * time.Second,
		KeepAliveTimeout:  10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
	}
}

// Dialer is the reference pool.Dialer[*Conn]. It dials plaintext gRPC
// only (TLS is an explicit spec.md Non-goal), treats a
// grpc_health_v1.Health/Check call as the handshake (spec §4.1's "fail
// condition... during handshake"), and rides keyspace/credentials on
// that same call's outgoing metadata.
type Dialer struct {
	cfg DialerConfig
}

// NewDialer constructs a Dialer. A zero DialerConfig is replaced with
// DefaultDialerConfig's values.
func NewDialer(cfg DialerConfig) *Dialer {
	if cfg.KeepAliveInterval == 0 && cfg.KeepAliveTimeout == 0 && cfg.HandshakeTimeout == 0 {
		cfg = DefaultDialerConfig()
	}
	return &Dialer{cfg: cfg}
}

// Dial opens a transport to addr, selects keyspace, and performs the
// handshake RPC. Any failure here — transport connect or the
// handshake itself — is a fail condition the factory treats as
// fail-over to the next server (spec §4.1).
func (d *Dialer) Dial(ctx context.Context, addr, keyspace string, creds pool.Credentials) (*Conn, error) {
	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                d.cfg.KeepAliveInterval,
			Timeout:             d.cfg.KeepAliveTimeout,
			PermitWithoutStream: true,
		}),
		grpc.WithDefaultCallOptions(grpc.UseCompressor(s2CompressorName)),
	)
	if err != nil {
		return nil, fmt.Errorf("wireclient: dial %s: %w", addr, err)
	}

	handshakeCtx, cancel := context.WithTimeout(ctx, d.cfg.HandshakeTimeout)
	defer cancel()
	handshakeCtx = attachHandshakeMetadata(handshakeCtx, keyspace, creds)

	health := grpc_health_v1.NewHealthClient(cc)
	resp, err := health.Check(handshakeCtx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		_ = cc.Close()
		return nil, fmt.Errorf("wireclient: handshake %s: %w", addr, err)
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		_ = cc.Close()
		return nil, fmt.Errorf("wireclient: handshake %s: backend reports status %s", addr, resp.GetStatus())
	}

	return &Conn{cc: cc, addr: addr, keyspace: keyspace}, nil
}

// attachHandshakeMetadata carries keyspace selection and, when creds
// is a credentials.Credentials, the derived client proof, as outgoing
// gRPC metadata on the handshake call.
func attachHandshakeMetadata(ctx context.Context, keyspace string, creds pool.Credentials) context.Context {
	pairs := []string{"laura-keyspace", keyspace}
	if cr, ok := creds.(poolcreds.Credentials); ok && cr.Username != "" {
		pairs = append(pairs, "laura-auth-user", cr.Username, "laura-auth-proof", cr.ClientProofHex())
	}
	return metadata.AppendToOutgoingContext(ctx, pairs...)
}
