package template

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
)

// captionEnv is the environment visible to expr captions.
type captionEnv struct {
	Camera   string              `expr:"camera"`
	Name     string              `expr:"name"`
	Seq      int                 `expr:"seq"`
	Buffered int                 `expr:"buffered"`
	Capacity int                 `expr:"capacity"`
	Time     func(string) string `expr:"time"`
	Bytes    func(int) string    `expr:"bytes"`
	Fill     func() int          `expr:"fill"`
}

func buildCaptionEnv(ctx camera.CaptionContext) captionEnv {
	return captionEnv{
		Camera:   ctx.Camera,
		Name:     ctx.Name,
		Seq:      int(ctx.Seq),
		Buffered: ctx.Buffered,
		Capacity: ctx.Capacity,
		Time:     timeFormatter(ctx.Timestamp),
		Bytes:    humanBytes,
		Fill:     func() int { return fillPercent(ctx.Buffered, ctx.Capacity) },
	}
}

// timeFormatter formats ts with a Go layout; an empty layout means 15:04:05.
func timeFormatter(ts time.Time) func(string) string {
	return func(layout string) string {
		if layout == "" {
			layout = time.TimeOnly
		}
		return ts.Format(layout)
	}
}

func humanBytes(n int) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func fillPercent(buffered, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	return buffered * 100 / capacity
}
