package wireclient

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// DemoBackend is a minimal in-process stand-in for a real backend: it
// answers the handshake health check and echoes back whatever raw
// payload Conn.Execute sends it. It exists for cmd/poolctl's demo mode
// and this package's own tests, not as a reference backend.
type DemoBackend struct {
	lis net.Listener
	srv *grpc.Server
}

// NewDemoBackend starts a DemoBackend listening on addr ("" picks an
// ephemeral loopback port — call Addr afterward to find it).
func NewDemoBackend(addr string) (*DemoBackend, error) {
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer(grpc.UnknownServiceHandler(demoUnknownHandler))

	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(srv, healthSrv)

	d := &DemoBackend{lis: lis, srv: srv}
	go func() { _ = srv.Serve(lis) }()
	return d, nil
}

// Addr is the address the demo backend is actually listening on.
func (d *DemoBackend) Addr() string { return d.lis.Addr().String() }

// Close stops accepting and drains in-flight RPCs.
func (d *DemoBackend) Close() {
	d.srv.GracefulStop()
}

// demoUnknownHandler is grpc's raw-stream handler signature for any
// method the server has no generated handler for — the server-side
// half of the same generic-proxy technique Conn.Execute relies on
// client-side (rawCodec, registered once for the whole binary in
// codec.go). It just echoes the request back, including for
// rollbackMethod, which is all a demo needs.
func demoUnknownHandler(srv any, stream grpc.ServerStream) error {
	var req []byte
	if err := stream.RecvMsg(&req); err != nil {
		return status.Errorf(codes.Internal, "demo backend: recv: %v", err)
	}
	return stream.SendMsg(req)
}
