// Package monitor models a client's monitoring session on one camera.
//
// A session moves through explicit states:
//
//	connected -> monitoring <-> stopped
//	any       -> closed
package monitor

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidTransition indicates an operation not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid session transition")
)

// State is a session lifecycle state.
type State string

const (
	StateConnected  State = "connected"
	StateMonitoring State = "monitoring"
	StateStopped    State = "stopped"
	StateClosed     State = "closed"
)

// Session is a single client's connection to a camera.
type Session struct {
	ID        string    `json:"id"`
	CameraID  string    `json:"camera_id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	StartedAt time.Time `json:"started_at,omitzero"`
	StoppedAt time.Time `json:"stopped_at,omitzero"`
}

// New returns a connected session.
func New(id, cameraID string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CameraID:  cameraID,
		State:     StateConnected,
		CreatedAt: now,
	}
}

// Start begins monitoring.
func (s *Session) Start(now time.Time) error {
	switch s.State {
	case StateConnected, StateStopped:
		s.State = StateMonitoring
		s.StartedAt = now
		return nil
	default:
		return s.invalid("start")
	}
}

// Stop ends monitoring but keeps the session connected.
func (s *Session) Stop(now time.Time) error {
	if s.State != StateMonitoring {
		return s.invalid("stop")
	}
	s.State = StateStopped
	s.StoppedAt = now
	return nil
}

// Close disconnects the session. Closing twice is an error.
func (s *Session) Close(now time.Time) error {
	if s.State == StateClosed {
		return s.invalid("close")
	}
	if s.State == StateMonitoring {
		s.StoppedAt = now
	}
	s.State = StateClosed
	return nil
}

// CanCapture reports whether screenshots are allowed in the current state.
func (s *Session) CanCapture() bool {
	return s.State != StateClosed
}

func (s *Session) invalid(op string) error {
	return fmt.Errorf("cannot %s session %s in state %q: %w", op, s.ID, s.State, ErrInvalidTransition)
}
