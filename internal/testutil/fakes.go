package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
)

var _ ports.Logger = (*NoopLogger)(nil)

// NoopLogger discards all log output.
type NoopLogger struct{}

func (l *NoopLogger) Info(string, ...any)  {}
func (l *NoopLogger) Warn(string, ...any)  {}
func (l *NoopLogger) Error(string, ...any) {}
func (l *NoopLogger) Debug(string, ...any) {}

var _ ports.Clock = (*FakeClock)(nil)

// FakeClock is a settable clock whose tickers fire only on Tick.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*ManualTicker
}

// NewFakeClock returns a clock frozen at t.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) SleepContext(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *FakeClock) NewTicker(time.Duration) ports.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &ManualTicker{ch: make(chan time.Time, 1)}
	c.tickers = append(c.tickers, t)
	return t
}

// Tick delivers the current time to every live ticker without blocking.
func (c *FakeClock) Tick() {
	c.mu.Lock()
	now := c.now
	tickers := append([]*ManualTicker(nil), c.tickers...)
	c.mu.Unlock()
	for _, t := range tickers {
		t.fire(now)
	}
}

// ManualTicker is the ports.Ticker handed out by FakeClock.
type ManualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *ManualTicker) C() <-chan time.Time { return t.ch }
func (t *ManualTicker) Stop()               { t.stopped.Store(true) }

func (t *ManualTicker) fire(now time.Time) {
	if t.stopped.Load() {
		return
	}
	select {
	case t.ch <- now:
	default:
	}
}

var _ ports.RateLimiter = (*StubRateLimiter)(nil)

// StubRateLimiter returns a configurable Allow result.
type StubRateLimiter struct {
	AllowAll bool
}

func (r *StubRateLimiter) Allow(context.Context, string, float64, int) bool {
	return r.AllowAll
}

var _ ports.IDGenerator = (*SequentialIDs)(nil)

// SequentialIDs yields "s-1", "s-2", ...
type SequentialIDs struct {
	n atomic.Uint64
}

func (g *SequentialIDs) NewID() string {
	return fmt.Sprintf("s-%d", g.n.Add(1))
}

var _ camera.FrameSource = (*StubSource)(nil)

// StubSource returns a fixed image (or error) and counts grabs.
type StubSource struct {
	Image frame.Image
	Err   error
	calls atomic.Int64
}

func (s *StubSource) Grab(ctx context.Context) (frame.Image, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return frame.Image{}, err
	}
	if s.Err != nil {
		return frame.Image{}, s.Err
	}
	img := s.Image
	img.Data = append([]byte(nil), s.Image.Data...)
	return img, nil
}

// Calls returns how many times Grab was invoked.
func (s *StubSource) Calls() int {
	return int(s.calls.Load())
}

// JPEGImage is a small fake frame payload.
func JPEGImage(n int) frame.Image {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return frame.Image{Data: data, ContentType: frame.ContentTypeJPEG, Width: 320, Height: 180}
}
