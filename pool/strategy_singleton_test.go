package pool

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

type threadKeyType struct{}

func withThread(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, threadKeyType{}, id)
}

func threadKeyFunc(ctx context.Context) any {
	return ctx.Value(threadKeyType{})
}

func TestSingletonPool_SameThreadReusesRecord(t *testing.T) {
	dialer := newFakeDialer()
	opts := testOptions("a:1")
	opts.PoolSize = 5

	p, err := NewSingletonPool[*fakeSession](dialer, opts, threadKeyFunc)
	if err != nil {
		t.Fatalf("NewSingletonPool: %v", err)
	}
	defer p.Dispose()

	ctx := withThread(context.Background(), 1)

	h1, err := p.Connect(ctx)
	if err != nil {
		t.Fatalf("connect 1: %v", err)
	}
	_ = h1.Close()

	h2, err := p.Connect(ctx)
	if err != nil {
		t.Fatalf("connect 2: %v", err)
	}
	defer h2.Close()

	if h1.Session() != h2.Session() {
		t.Error("expected the same thread to reuse the same session")
	}
}

// Scenario E: pool_size=2, three distinct threads each acquire once —
// three distinct records are created, and the live set never exceeds
// pool_size once eviction kicks in.
func TestSingletonPool_ScenarioE_EvictsPastPoolSize(t *testing.T) {
	dialer := newFakeDialer()
	opts := testOptions("a:1")
	opts.PoolSize = 2

	p, err := NewSingletonPool[*fakeSession](dialer, opts, threadKeyFunc)
	if err != nil {
		t.Fatalf("NewSingletonPool: %v", err)
	}
	defer p.Dispose()

	sessions := make([]*fakeSession, 3)
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := withThread(context.Background(), i)
			h, err := p.Connect(ctx)
			if err != nil {
				t.Errorf("connect %d: %v", i, err)
				return
			}
			mu.Lock()
			sessions[i] = h.Session()
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	seen := make(map[*fakeSession]bool)
	for _, s := range sessions {
		if s == nil {
			t.Fatal("expected every thread to get a session")
		}
		seen[s] = true
	}
	if len(seen) != 3 {
		t.Errorf("expected three distinct records created, got %d", len(seen))
	}

	status := p.Status()
	if status == "" {
		t.Fatal("expected a non-empty status")
	}
	snap, err := statusOf(p)
	if err != nil {
		t.Fatalf("parsing status: %v", err)
	}
	if snap.checked > 2 {
		t.Errorf("expected the live set to be bounded to pool_size=2 after eviction, got %d", snap.checked)
	}
}

func TestSingletonPool_DisposeLocalOnlyAffectsCallingThread(t *testing.T) {
	dialer := newFakeDialer()
	opts := testOptions("a:1")
	opts.PoolSize = 5

	p, err := NewSingletonPool[*fakeSession](dialer, opts, threadKeyFunc)
	if err != nil {
		t.Fatalf("NewSingletonPool: %v", err)
	}
	defer p.Dispose()

	ctxA := withThread(context.Background(), 1)
	ctxB := withThread(context.Background(), 2)

	hA1, err := p.Connect(ctxA)
	if err != nil {
		t.Fatalf("connect A: %v", err)
	}
	_ = hA1.Close()
	hB1, err := p.Connect(ctxB)
	if err != nil {
		t.Fatalf("connect B: %v", err)
	}
	defer hB1.Close()

	p.DisposeLocal(ctxA)

	hA2, err := p.Connect(ctxA)
	if err != nil {
		t.Fatalf("connect A again: %v", err)
	}
	defer hA2.Close()

	if hA1.Session() == hA2.Session() {
		t.Error("expected DisposeLocal to force thread A onto a fresh record")
	}
	if hB1.Session() == nil {
		t.Fatal("expected thread B's session to remain usable")
	}
}

type statusSnap struct {
	name     string
	size     int
	checked  int
	overflow int
}

// statusOf parses a Pool.Status() line ("<name> size=<n>
// checked_out=<n> overflow=<n>") back into its fields for assertions.
func statusOf(p interface{ Status() string }) (statusSnap, error) {
	var snap statusSnap
	var sizeKV, checkedKV, overflowKV string
	_, err := fmt.Sscanf(p.Status(), "%s %s %s %s", &snap.name, &sizeKV, &checkedKV, &overflowKV)
	if err != nil {
		return snap, err
	}
	if _, err := fmt.Sscanf(sizeKV, "size=%d", &snap.size); err != nil {
		return snap, err
	}
	if _, err := fmt.Sscanf(checkedKV, "checked_out=%d", &snap.checked); err != nil {
		return snap, err
	}
	if _, err := fmt.Sscanf(overflowKV, "overflow=%d", &snap.overflow); err != nil {
		return snap, err
	}
	return snap, nil
}
