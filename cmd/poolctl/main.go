// Command poolctl is a demonstration client for laura-pool: it parses
// a connection string, builds a pool against a real (or, with -demo,
// an in-process) backend, optionally serves the admin HTTP surface,
// and runs a simple checkout/execute/release loop until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mnohosten/laura-pool/admin"
	"github.com/mnohosten/laura-pool/connstring"
	"github.com/mnohosten/laura-pool/pool"
	"github.com/mnohosten/laura-pool/wireclient"
)

func main() {
	connStr := flag.String("conn", "laura-pool://127.0.0.1:27018/default", "laura-pool connection string")
	demo := flag.Bool("demo", true, "run an in-process demo backend instead of dialing -conn's hosts")
	adminAddr := flag.String("admin-addr", ":8090", "admin HTTP surface listen address (empty disables it)")
	strategy := flag.String("strategy", "bounded", "pool strategy: bounded, singleton, null, static, assertion")
	interval := flag.Duration("interval", 2*time.Second, "interval between demo checkout/execute/release cycles")
	flag.Parse()

	cs, err := connstring.Parse(*connStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poolctl: invalid connection string: %v\n", err)
		os.Exit(1)
	}

	var backend *wireclient.DemoBackend
	if *demo {
		backend, err = wireclient.NewDemoBackend("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "poolctl: starting demo backend: %v\n", err)
			os.Exit(1)
		}
		defer backend.Close()
		log.Printf("poolctl: demo backend listening on %s", backend.Addr())
	}

	opts := cs.ToPoolOptions()
	if *demo {
		opts.ServerList = []string{backend.Addr()}
	}

	broadcaster := admin.NewEventBroadcaster[*wireclient.Conn]()
	opts.Listeners = append(opts.Listeners, broadcaster)

	dialer := wireclient.NewDialer(wireclient.DefaultDialerConfig())

	p, err := buildPool(*strategy, dialer, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "poolctl: building pool: %v\n", err)
		os.Exit(1)
	}
	defer p.Dispose()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *adminAddr != "" {
		adminSrv, err := admin.New(p, broadcaster)
		if err != nil {
			fmt.Fprintf(os.Stderr, "poolctl: building admin server: %v\n", err)
			os.Exit(1)
		}
		httpSrv := &http.Server{Addr: *adminAddr, Handler: adminSrv}
		go func() {
			log.Printf("poolctl: admin surface on %s", *adminAddr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("poolctl: admin server error: %v", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()
	}

	runLoop(ctx, p, *interval)

	log.Println("poolctl: shutting down")
}

func buildPool(strategy string, dialer *wireclient.Dialer, opts pool.Options) (*pool.Pool[*wireclient.Conn], error) {
	switch strategy {
	case "bounded":
		return pool.NewBoundedQueuePool[*wireclient.Conn](dialer, opts)
	case "singleton":
		return pool.NewSingletonPool[*wireclient.Conn](dialer, opts, func(ctx context.Context) any {
			return ctx.Value(threadKeyCtxKey{})
		})
	case "null":
		return pool.NewNullPool[*wireclient.Conn](dialer, opts)
	case "static":
		return pool.NewStaticPool[*wireclient.Conn](dialer, opts)
	case "assertion":
		return pool.NewAssertionPool[*wireclient.Conn](dialer, opts)
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
}

type threadKeyCtxKey struct{}

// runLoop checks a handle out, issues an Execute of a Ping method as a
// stand-in operation, and releases it, once per interval, until ctx is
// cancelled.
func runLoop(ctx context.Context, p *pool.Pool[*wireclient.Conn], interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycle(ctx, p)
		}
	}
}

func cycle(ctx context.Context, p *pool.Pool[*wireclient.Conn]) {
	h, err := p.UniqueConnection(ctx)
	if err != nil {
		log.Printf("poolctl: connect: %v", err)
		return
	}

	conn := h.Session()
	if _, err := conn.Execute(ctx, "/laura.pool.Backend/Ping", nil); err != nil {
		log.Printf("poolctl: execute: %v", err)
	}

	if err := h.Close(); err != nil {
		log.Printf("poolctl: close: %v", err)
	}

	log.Printf("poolctl: %s", p.Status())
}
