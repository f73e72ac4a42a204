package usecases

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/events"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
	"github.com/sophialabs/coopwatch/internal/domain/monitor"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
)

// CameraCatalog resolves the currently loaded cameras.
type CameraCatalog interface {
	Lookup(id string) (*camera.Compiled, bool)
}

// SessionManager owns every monitoring session. Sessions are plain values
// handed out by copy; all state changes go through the manager.
type SessionManager struct {
	catalog CameraCatalog
	stages  *services.StageSet
	sampler *SampleFrameUseCase
	events  *events.Log
	ids     ports.IDGenerator
	clock   ports.Clock
	logger  ports.Logger

	mu       sync.Mutex
	sessions map[string]*monitor.Session
}

// NewSessionManager creates an empty manager.
func NewSessionManager(
	catalog CameraCatalog,
	stages *services.StageSet,
	sampler *SampleFrameUseCase,
	log *events.Log,
	ids ports.IDGenerator,
	clock ports.Clock,
	logger ports.Logger,
) *SessionManager {
	return &SessionManager{
		catalog:  catalog,
		stages:   stages,
		sampler:  sampler,
		events:   log,
		ids:      ids,
		clock:    clock,
		logger:   logger,
		sessions: make(map[string]*monitor.Session),
	}
}

// Connect opens a session on cameraID.
func (m *SessionManager) Connect(_ context.Context, cameraID string) (monitor.Session, error) {
	if _, ok := m.catalog.Lookup(cameraID); !ok {
		return monitor.Session{}, fmt.Errorf("camera %q: %w", cameraID, camera.ErrNotFound)
	}
	s := monitor.New(m.ids.NewID(), cameraID, m.clock.Now())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.note(s, "connected")
	return *s, nil
}

// Start moves a session to monitoring.
func (m *SessionManager) Start(_ context.Context, id string) (monitor.Session, error) {
	return m.transition(id, "monitoring started", (*monitor.Session).Start)
}

// Stop moves a monitoring session to stopped.
func (m *SessionManager) Stop(_ context.Context, id string) (monitor.Session, error) {
	return m.transition(id, "monitoring stopped", (*monitor.Session).Stop)
}

// Disconnect closes and forgets a session.
func (m *SessionManager) Disconnect(_ context.Context, id string) (monitor.Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return monitor.Session{}, fmt.Errorf("session %q: %w", id, monitor.ErrSessionNotFound)
	}
	if err := s.Close(m.clock.Now()); err != nil {
		m.mu.Unlock()
		return monitor.Session{}, err
	}
	delete(m.sessions, id)
	out := *s
	m.mu.Unlock()

	m.note(&out, "disconnected")
	return out, nil
}

// Screenshot returns the newest staged frame of the session's camera,
// capturing one on the spot when the stage is empty.
func (m *SessionManager) Screenshot(ctx context.Context, id string) (frame.Frame, error) {
	s, err := m.Get(id)
	if err != nil {
		return frame.Frame{}, err
	}
	if !s.CanCapture() {
		return frame.Frame{}, fmt.Errorf("screenshot on session %s in state %q: %w", id, s.State, monitor.ErrInvalidTransition)
	}
	cam, ok := m.catalog.Lookup(s.CameraID)
	if !ok {
		return frame.Frame{}, fmt.Errorf("camera %q: %w", s.CameraID, camera.ErrNotFound)
	}

	if st, ok := m.stages.Get(cam.ID); ok {
		if f, ok := st.Latest(); ok {
			return f, nil
		}
	}
	return m.sampler.Capture(ctx, cam)
}

// Get returns a copy of the session.
func (m *SessionManager) Get(id string) (monitor.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return monitor.Session{}, fmt.Errorf("session %q: %w", id, monitor.ErrSessionNotFound)
	}
	return *s, nil
}

// List returns copies of all sessions ordered by creation time.
func (m *SessionManager) List() []monitor.Session {
	m.mu.Lock()
	out := make([]monitor.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, *s)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Monitoring returns how many sessions are monitoring cameraID.
func (m *SessionManager) Monitoring(cameraID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sessions {
		if s.CameraID == cameraID && s.State == monitor.StateMonitoring {
			n++
		}
	}
	return n
}

// CloseCamera disconnects every session on cameraID and returns how many
// were closed.
func (m *SessionManager) CloseCamera(cameraID string) int {
	now := m.clock.Now()
	var closed []monitor.Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.CameraID != cameraID {
			continue
		}
		_ = s.Close(now)
		delete(m.sessions, id)
		closed = append(closed, *s)
	}
	m.mu.Unlock()

	for i := range closed {
		m.note(&closed[i], "closed: camera removed")
	}
	return len(closed)
}

func (m *SessionManager) transition(id, what string, apply func(*monitor.Session, time.Time) error) (monitor.Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return monitor.Session{}, fmt.Errorf("session %q: %w", id, monitor.ErrSessionNotFound)
	}
	if err := apply(s, m.clock.Now()); err != nil {
		m.mu.Unlock()
		return monitor.Session{}, err
	}
	out := *s
	m.mu.Unlock()

	m.note(&out, what)
	return out, nil
}

func (m *SessionManager) note(s *monitor.Session, what string) {
	m.logger.Info("session "+what, "session", s.ID, "camera", s.CameraID, "state", s.State)
	m.events.Add(events.Entry{
		Timestamp: m.clock.Now(),
		Camera:    s.CameraID,
		Kind:      events.KindSession,
		Detail:    fmt.Sprintf("%s %s", s.ID, what),
	})
}
