package ports

import (
	"context"
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

// Clock provides the current time and tick sources (for testing).
type Clock interface {
	Now() time.Time
	// SleepContext blocks for d or until ctx is cancelled. Returns ctx.Err() if cancelled.
	SleepContext(ctx context.Context, d time.Duration) error
	// NewTicker returns a ticker firing every d.
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Logger provides structured logging.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// RateLimiter checks whether a request is allowed under rate limits.
type RateLimiter interface {
	// Allow checks if a request identified by key is within the rate limit.
	// rate is tokens per second, burst is the max burst size.
	Allow(ctx context.Context, key string, rate float64, burst int) bool
}

// IDGenerator produces unique session identifiers.
type IDGenerator interface {
	NewID() string
}

// Annotator draws caption text onto an encoded frame.
type Annotator interface {
	Annotate(img frame.Image, text string, quality int) (frame.Image, error)
}
