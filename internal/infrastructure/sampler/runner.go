// Package sampler runs one sampling loop per loaded camera.
package sampler

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
	"github.com/sophialabs/coopwatch/internal/infrastructure/usecases"
)

type loop struct {
	cam    *camera.Compiled
	cancel context.CancelFunc
	done   chan struct{}
}

// Runner keeps the set of sampling loops in line with the current camera
// index. It is also the catalog the rest of the service resolves cameras
// through.
type Runner struct {
	sample *usecases.SampleFrameUseCase
	stages *services.StageSet
	hub    *services.Hub
	clock  ports.Clock
	logger ports.Logger

	// OnRemove is called for every camera dropped by Apply, after its loop
	// has stopped.
	OnRemove func(cameraID string)

	mu      sync.RWMutex
	base    context.Context
	index   *services.CameraIndex
	loops   map[string]*loop
	started bool
	stopped bool
}

// NewRunner creates an idle runner with an empty index.
func NewRunner(
	sample *usecases.SampleFrameUseCase,
	stages *services.StageSet,
	hub *services.Hub,
	clock ports.Clock,
	logger ports.Logger,
) *Runner {
	return &Runner{
		sample: sample,
		stages: stages,
		hub:    hub,
		clock:  clock,
		logger: logger,
		base:   context.Background(),
		index:  services.NewCameraIndex(),
		loops:  make(map[string]*loop),
	}
}

// Start sets the context loops run under and starts a loop for every
// camera already applied.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.base = ctx
	r.started = true
	for _, cam := range r.index.All() {
		if _, ok := r.loops[cam.ID]; !ok {
			r.loops[cam.ID] = r.spawn(cam)
		}
	}
}

// Apply swaps in a new camera index. Loops restart against the new
// definitions, removed cameras lose their loop, stage and live feeds. Stages of cameras
// that are still present keep their frames.
func (r *Runner) Apply(index *services.CameraIndex) error {
	for _, cam := range index.All() {
		if _, err := r.stages.Ensure(cam.ID, cam.BufferBytes); err != nil {
			return err
		}
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return fmt.Errorf("runner stopped")
	}
	var stale []*loop
	var removed []string
	for id, l := range r.loops {
		next, ok := index.Lookup(id)
		if ok && next == l.cam {
			continue
		}
		l.cancel()
		stale = append(stale, l)
		delete(r.loops, id)
		if !ok {
			removed = append(removed, id)
		}
	}
	for _, id := range r.index.IDs() {
		if _, ok := index.Lookup(id); !ok && !slices.Contains(removed, id) {
			removed = append(removed, id)
		}
	}
	r.index = index
	if r.started {
		for _, cam := range index.All() {
			if _, ok := r.loops[cam.ID]; !ok {
				r.loops[cam.ID] = r.spawn(cam)
			}
		}
	}
	r.mu.Unlock()

	for _, l := range stale {
		<-l.done
	}
	r.stages.Retain(index.IDs())
	for _, id := range removed {
		r.hub.CloseCamera(id)
		r.sample.Forget(id)
		if r.OnRemove != nil {
			r.OnRemove(id)
		}
		r.logger.Info("camera removed", "camera", id)
	}
	r.logger.Info("sampler applied camera index", "cameras", index.Len(), "removed", len(removed))
	return nil
}

// Stop cancels every loop and waits for them to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.stopped = true
	loops := r.loops
	r.loops = make(map[string]*loop)
	r.mu.Unlock()

	for _, l := range loops {
		l.cancel()
	}
	for _, l := range loops {
		<-l.done
	}
}

// Lookup returns the loaded camera with the given ID.
func (r *Runner) Lookup(id string) (*camera.Compiled, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.Lookup(id)
}

// Cameras returns the loaded cameras in ID order.
func (r *Runner) Cameras() []*camera.Compiled {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.All()
}

// SampleOnce captures one frame from cameraID outside the schedule.
func (r *Runner) SampleOnce(ctx context.Context, cameraID string) (frame.Frame, error) {
	cam, ok := r.Lookup(cameraID)
	if !ok {
		return frame.Frame{}, fmt.Errorf("camera %q: %w", cameraID, camera.ErrNotFound)
	}
	return r.sample.Capture(ctx, cam)
}

// spawn must be called with r.mu held.
func (r *Runner) spawn(cam *camera.Compiled) *loop {
	ctx, cancel := context.WithCancel(r.base)
	l := &loop{cam: cam, cancel: cancel, done: make(chan struct{})}
	go r.run(ctx, l)
	return l
}

func (r *Runner) run(ctx context.Context, l *loop) {
	defer close(l.done)

	ticker := r.clock.NewTicker(l.cam.TickInterval)
	defer ticker.Stop()

	r.logger.Debug("sampling loop started", "camera", l.cam.ID,
		"tick", l.cam.TickInterval, "frame_interval", l.cam.FrameInterval)
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("sampling loop stopped", "camera", l.cam.ID)
			return
		case <-ticker.C():
			if _, err := r.sample.Tick(ctx, l.cam); err != nil && ctx.Err() == nil {
				r.logger.Debug("sampler tick failed", "camera", l.cam.ID, "error", err)
			}
		}
	}
}
