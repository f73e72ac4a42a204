package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
)

var _ ports.RateLimiter = (*ClientStore)(nil)

const defaultIdleTTL = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	rate     float64
	burst    int
	lastSeen time.Time
}

// ClientStore keeps one token bucket per camera/client pair.
type ClientStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	ttl     time.Duration
	clock   ports.Clock

	stopOnce sync.Once
	stop     chan struct{}
}

// NewClientStore creates a store whose idle buckets are swept every ttl.
// Call Stop to end the sweeper.
func NewClientStore(clk ports.Clock, ttl time.Duration) *ClientStore {
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}
	s := &ClientStore{
		buckets: make(map[string]*bucket),
		ttl:     ttl,
		clock:   clk,
		stop:    make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Stop ends the sweeper. Safe to call more than once.
func (s *ClientStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *ClientStore) sweepLoop() {
	t := s.clock.NewTicker(s.ttl)
	defer t.Stop()
	for {
		select {
		case <-t.C():
			s.Sweep()
		case <-s.stop:
			return
		}
	}
}

// Allow takes one token from key's bucket, creating or retuning it as needed.
func (s *ClientStore) Allow(_ context.Context, key string, r float64, burst int) bool {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	switch {
	case !ok:
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(r), burst), rate: r, burst: burst}
		s.buckets[key] = b
	case b.rate != r || b.burst != burst:
		// Camera limits changed on reload.
		b.limiter.SetLimitAt(now, rate.Limit(r))
		b.limiter.SetBurstAt(now, burst)
		b.rate, b.burst = r, burst
	}

	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Sweep drops buckets idle for longer than the TTL.
func (s *ClientStore) Sweep() {
	cutoff := s.clock.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, key)
		}
	}
}

// Len returns the number of live buckets.
func (s *ClientStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}
