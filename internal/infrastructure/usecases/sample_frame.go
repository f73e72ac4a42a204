package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/events"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
	"github.com/sophialabs/coopwatch/internal/domain/stage"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
)

// Outcome is the result of one sampler tick.
type Outcome int

const (
	OutcomeStaged Outcome = iota
	OutcomeTooSoon
	OutcomeScheduledOff
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStaged:
		return "staged"
	case OutcomeTooSoon:
		return "too_soon"
	case OutcomeScheduledOff:
		return "scheduled_off"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type cursor struct {
	last     time.Time
	seq      uint64 // last staged sequence number
	skipping bool

	// capture serializes Capture per camera so sequence numbers are staged
	// in order.
	capture sync.Mutex
}

// SampleFrameUseCase grabs frames from camera sources and stages them.
type SampleFrameUseCase struct {
	stages    *services.StageSet
	hub       *services.Hub
	events    *events.Log
	annotator ports.Annotator
	clock     ports.Clock
	logger    ports.Logger

	mu      sync.Mutex
	cursors map[string]*cursor
}

// NewSampleFrameUseCase creates a new use case. annotator may be nil, in
// which case captions are not drawn.
func NewSampleFrameUseCase(
	stages *services.StageSet,
	hub *services.Hub,
	log *events.Log,
	annotator ports.Annotator,
	clock ports.Clock,
	logger ports.Logger,
) *SampleFrameUseCase {
	return &SampleFrameUseCase{
		stages:    stages,
		hub:       hub,
		events:    log,
		annotator: annotator,
		clock:     clock,
		logger:    logger,
		cursors:   make(map[string]*cursor),
	}
}

// Tick runs one sampler tick for cam: nothing happens until FrameInterval
// has passed since the last capture, and the camera's schedule may veto
// the capture.
func (uc *SampleFrameUseCase) Tick(ctx context.Context, cam *camera.Compiled) (Outcome, error) {
	now := uc.clock.Now()
	st, err := uc.stages.Ensure(cam.ID, cam.BufferBytes)
	if err != nil {
		return OutcomeFailed, err
	}

	uc.mu.Lock()
	cur := uc.cursor(cam.ID)
	if !cur.last.IsZero() && now.Sub(cur.last) < cam.FrameInterval {
		uc.mu.Unlock()
		return OutcomeTooSoon, nil
	}
	next := cur.seq + 1
	uc.mu.Unlock()

	if cam.Schedule != nil {
		stats := st.Stats()
		ok, err := cam.Schedule.Allow(camera.ScheduleContext{
			Now:      now,
			Seq:      next,
			Buffered: stats.Size,
			Capacity: stats.Capacity,
		})
		if err != nil {
			uc.record(cam.ID, events.KindError, 0, err.Error())
			return OutcomeFailed, err
		}
		if !ok {
			uc.mu.Lock()
			first := !cur.skipping
			cur.skipping = true
			uc.mu.Unlock()
			if first {
				uc.record(cam.ID, events.KindSkipped, 0, "sample_when is false")
			}
			return OutcomeScheduledOff, nil
		}
	}

	uc.mu.Lock()
	cur.skipping = false
	cur.last = now
	uc.mu.Unlock()

	if _, err := uc.Capture(ctx, cam); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeStaged, nil
}

// Capture grabs, captions and stages one frame unconditionally. A frame
// the stage refuses does not use up a sequence number.
func (uc *SampleFrameUseCase) Capture(ctx context.Context, cam *camera.Compiled) (frame.Frame, error) {
	st, err := uc.stages.Ensure(cam.ID, cam.BufferBytes)
	if err != nil {
		return frame.Frame{}, err
	}

	uc.mu.Lock()
	cur := uc.cursor(cam.ID)
	uc.mu.Unlock()
	cur.capture.Lock()
	defer cur.capture.Unlock()

	img, err := cam.Source.Grab(ctx)
	if err != nil {
		uc.logger.Warn("frame grab failed", "camera", cam.ID, "error", err)
		uc.record(cam.ID, events.KindError, 0, err.Error())
		return frame.Frame{}, fmt.Errorf("camera %q: grab: %w", cam.ID, err)
	}

	now := uc.clock.Now()
	uc.mu.Lock()
	seq := cur.seq + 1
	uc.mu.Unlock()

	if cam.Caption != nil && uc.annotator != nil {
		stats := st.Stats()
		text, err := cam.Caption.Render(camera.CaptionContext{
			Camera:    cam.ID,
			Name:      cam.Name,
			Seq:       seq,
			Timestamp: now,
			Buffered:  stats.Size,
			Capacity:  stats.Capacity,
		})
		if err == nil {
			img, err = uc.annotator.Annotate(img, text, cam.Quality)
		}
		if err != nil {
			// The uncaptioned frame is still staged.
			uc.logger.Warn("caption failed", "camera", cam.ID, "error", err)
		}
	}

	f := frame.Frame{
		Camera:      cam.ID,
		Seq:         seq,
		Timestamp:   now,
		Width:       img.Width,
		Height:      img.Height,
		ContentType: img.ContentType,
		Data:        img.Data,
	}

	res, err := st.Put(f)
	if err != nil {
		if errors.Is(err, stage.ErrFrameTooLarge) || errors.Is(err, stage.ErrInvalidFrame) {
			uc.logger.Warn("frame dropped", "camera", cam.ID, "size", humanize.IBytes(uint64(len(f.Data))), "error", err)
			uc.record(cam.ID, events.KindDropped, 0, err.Error())
		}
		return frame.Frame{}, fmt.Errorf("camera %q: %w", cam.ID, err)
	}

	uc.mu.Lock()
	cur.seq = seq
	uc.mu.Unlock()

	if res.Evicted > 0 {
		uc.record(cam.ID, events.KindEvicted, seq, fmt.Sprintf("%d oldest frame(s) evicted", res.Evicted))
	}
	uc.record(cam.ID, events.KindStaged, seq, humanize.IBytes(uint64(len(f.Data))))
	uc.logger.Debug("frame staged", "camera", cam.ID, "seq", seq, "bytes", len(f.Data), "evicted", res.Evicted)

	uc.hub.Publish(f)
	return f, nil
}

// Forget drops the sampling cursor of a removed camera.
func (uc *SampleFrameUseCase) Forget(cameraID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.cursors, cameraID)
}

// cursor must be called with uc.mu held.
func (uc *SampleFrameUseCase) cursor(cameraID string) *cursor {
	cur, ok := uc.cursors[cameraID]
	if !ok {
		cur = &cursor{}
		uc.cursors[cameraID] = cur
	}
	return cur
}

func (uc *SampleFrameUseCase) record(cameraID string, kind events.Kind, seq uint64, detail string) {
	uc.events.Add(events.Entry{
		Timestamp: uc.clock.Now(),
		Camera:    cameraID,
		Kind:      kind,
		Seq:       seq,
		Detail:    detail,
	})
}
