package source

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/fogleman/gg"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
)

var _ camera.FrameSource = (*Synthetic)(nil)

// Synthetic renders a coop scene: straw floor, a feeder and a few hens that
// wander a little on every frame.
type Synthetic struct {
	width, height int
	quality       int
	clock         ports.Clock
	frames        atomic.Uint64
}

// NewSynthetic creates a renderer producing width x height JPEGs.
func NewSynthetic(width, height, quality int, clk ports.Clock) *Synthetic {
	if width <= 0 {
		width = camera.DefaultWidth
	}
	if height <= 0 {
		height = camera.DefaultHeight
	}
	return &Synthetic{width: width, height: height, quality: quality, clock: clk}
}

func (s *Synthetic) Grab(ctx context.Context) (frame.Image, error) {
	if err := ctx.Err(); err != nil {
		return frame.Image{}, err
	}
	n := s.frames.Add(1)

	w, h := float64(s.width), float64(s.height)
	dc := gg.NewContext(s.width, s.height)

	// Back wall and straw floor.
	dc.SetRGB255(92, 70, 52)
	dc.Clear()
	dc.SetRGB255(214, 180, 96)
	dc.DrawRectangle(0, h*0.55, w, h*0.45)
	dc.Fill()

	// Feeder.
	dc.SetRGB255(120, 120, 128)
	dc.DrawRectangle(w*0.42, h*0.48, w*0.16, h*0.12)
	dc.Fill()

	for i := range 4 {
		phase := float64(n)*0.35 + float64(i)*1.7
		x := w*(0.15+0.23*float64(i)) + math.Sin(phase)*w*0.04
		y := h*0.75 + math.Cos(phase*0.8)*h*0.06
		drawHen(dc, x, y, h*0.07)
	}

	// Timestamp strip.
	dc.SetRGBA(0, 0, 0, 0.45)
	dc.DrawRectangle(0, 0, w, 16)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(s.clock.Now().Format("2006-01-02 15:04:05"), w-4, 8, 1, 0.5)

	data, err := encodeJPEG(dc.Image(), s.quality)
	if err != nil {
		return frame.Image{}, err
	}
	return frame.Image{
		Data:        data,
		ContentType: frame.ContentTypeJPEG,
		Width:       s.width,
		Height:      s.height,
	}, nil
}

func drawHen(dc *gg.Context, x, y, r float64) {
	dc.SetRGB255(245, 242, 235)
	dc.DrawEllipse(x, y, r*1.3, r)
	dc.Fill()
	dc.DrawCircle(x+r*1.2, y-r*0.8, r*0.55)
	dc.Fill()
	dc.SetRGB255(200, 30, 30)
	dc.DrawCircle(x+r*1.25, y-r*1.35, r*0.2)
	dc.Fill()
	dc.SetRGB255(240, 170, 20)
	dc.MoveTo(x+r*1.7, y-r*0.85)
	dc.LineTo(x+r*2.05, y-r*0.7)
	dc.LineTo(x+r*1.7, y-r*0.55)
	dc.ClosePath()
	dc.Fill()
}
