package ratelimit_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sophialabs/coopwatch/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/coopwatch/internal/testutil"
)

var epoch = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func newStore(t *testing.T, ttl time.Duration) (*ratelimit.ClientStore, *testutil.FakeClock) {
	t.Helper()
	clk := testutil.NewFakeClock(epoch)
	store := ratelimit.NewClientStore(clk, ttl)
	t.Cleanup(store.Stop)
	return store, clk
}

func TestClientStore_AllowWithinBurst(t *testing.T) {
	store, _ := newStore(t, time.Minute)
	ctx := context.Background()

	for i := range 3 {
		if !store.Allow(ctx, "coop|10.0.0.1", 1, 3) {
			t.Errorf("read %d should be allowed within burst", i+1)
		}
	}
	if store.Allow(ctx, "coop|10.0.0.1", 1, 3) {
		t.Error("read over burst should be denied")
	}
}

func TestClientStore_RefillsWithTime(t *testing.T) {
	store, clk := newStore(t, time.Minute)
	ctx := context.Background()

	store.Allow(ctx, "k", 2, 1)
	if store.Allow(ctx, "k", 2, 1) {
		t.Fatal("second read should be denied before refill")
	}

	clk.Advance(500 * time.Millisecond)
	if !store.Allow(ctx, "k", 2, 1) {
		t.Error("read should be allowed after half a second at 2/s")
	}
}

func TestClientStore_PerClientIsolation(t *testing.T) {
	store, _ := newStore(t, time.Minute)
	ctx := context.Background()

	a := "coop|10.0.0.1"
	b := "coop|10.0.0.2"

	store.Allow(ctx, a, 1, 1)
	if store.Allow(ctx, a, 1, 1) {
		t.Error("client a should be limited")
	}
	if !store.Allow(ctx, b, 1, 1) {
		t.Error("client b should have its own bucket")
	}
	if store.Len() != 2 {
		t.Errorf("expected 2 buckets, got %d", store.Len())
	}
}

func TestClientStore_Sweep(t *testing.T) {
	store, clk := newStore(t, time.Minute)
	ctx := context.Background()

	store.Allow(ctx, "old", 1, 1)
	clk.Advance(30 * time.Second)
	store.Allow(ctx, "fresh", 1, 1)
	clk.Advance(45 * time.Second)
	store.Sweep()

	if store.Len() != 1 {
		t.Errorf("expected only the fresh bucket to survive, got %d", store.Len())
	}
}

func TestClientStore_RetunedOnReload(t *testing.T) {
	store, clk := newStore(t, time.Minute)
	ctx := context.Background()

	store.Allow(ctx, "k", 1, 1)
	if store.Allow(ctx, "k", 1, 1) {
		t.Fatal("expected limit at rate 1")
	}

	// Same key, higher rate: still one bucket, refills faster.
	store.Allow(ctx, "k", 10, 1)
	if store.Len() != 1 {
		t.Fatalf("expected 1 bucket after retune, got %d", store.Len())
	}
	clk.Advance(150 * time.Millisecond)
	if !store.Allow(ctx, "k", 10, 1) {
		t.Error("expected a token after 150ms at 10/s")
	}
}

func TestClientStore_StopTwice(t *testing.T) {
	store, _ := newStore(t, time.Minute)
	store.Stop()
	store.Stop()
}

func TestClientStore_Concurrent(t *testing.T) {
	store, _ := newStore(t, time.Minute)
	ctx := context.Background()
	var wg sync.WaitGroup

	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Allow(ctx, "shared", 100, 100)
		}()
	}
	wg.Wait()

	if store.Len() != 1 {
		t.Errorf("expected 1 bucket, got %d", store.Len())
	}
}
