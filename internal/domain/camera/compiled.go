package camera

import (
	"context"
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

// FrameSource produces one encoded image per call.
type FrameSource interface {
	Grab(ctx context.Context) (frame.Image, error)
}

// CaptionContext is what caption templates can see.
type CaptionContext struct {
	Camera    string
	Name      string
	Seq       uint64
	Timestamp time.Time
	Buffered  int
	Capacity  int
}

// Captioner renders the caption text for one frame.
type Captioner interface {
	Render(ctx CaptionContext) (string, error)
}

// ScheduleContext is what sample_when expressions can see.
type ScheduleContext struct {
	Now      time.Time
	Seq      uint64
	Buffered int
	Capacity int
}

// Schedule decides whether a tick should take a frame.
type Schedule interface {
	Allow(ctx ScheduleContext) (bool, error)
}

// Compiled is a camera ready to be sampled.
type Compiled struct {
	ID            string
	Name          string
	Kind          string
	Source        FrameSource
	Caption       Captioner // nil means no caption
	Schedule      Schedule  // nil means always
	TickInterval  time.Duration
	FrameInterval time.Duration
	BufferBytes   int
	Quality       int // JPEG quality used when re-encoding captioned frames
	RateLimit     *RateLimit
}
