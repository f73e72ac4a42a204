package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sophialabs/coopwatch/internal/domain/events"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
	"github.com/sophialabs/coopwatch/internal/domain/monitor"
)

const defaultEventLimit = 100

type sessionResponse struct {
	Status    string          `json:"status"`
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Session   monitor.Session `json:"session"`
	Frame     *frame.Frame    `json:"frame,omitempty"`
	ImageURL  string          `json:"image_url,omitempty"`
}

func (s *Server) writeSession(w http.ResponseWriter, status int, message string, sess monitor.Session) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, sessionResponse{
		Status:    "success",
		Message:   message,
		Timestamp: s.clock.Now(),
		Session:   sess,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, s.sessions.List())
}

func (s *Server) handleConnectSession(w http.ResponseWriter, r *http.Request) {
	defer func() { _ = r.Body.Close() }()
	var req struct {
		CameraID string `json:"camera_id"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "request body must be JSON with camera_id")
		return
	}
	if req.CameraID == "" {
		writeError(w, http.StatusBadRequest, "invalid", "camera_id is required")
		return
	}

	sess, err := s.sessions.Connect(r.Context(), req.CameraID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/sessions/"+sess.ID)
	s.writeSession(w, http.StatusCreated, "session connected", sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sess)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Start(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, "monitoring started", sess)
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Stop(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, "monitoring stopped", sess)
}

func (s *Server) handleDisconnectSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Disconnect(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.writeSession(w, http.StatusOK, "session disconnected", sess)
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	f, err := s.sessions.Screenshot(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sessionResponse{
		Status:    "success",
		Message:   "screenshot captured",
		Timestamp: s.clock.Now(),
		Session:   sess,
		Frame:     &f,
		ImageURL:  "/api/v1/cameras/" + sess.CameraID + "/frames/latest",
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	n := defaultEventLimit
	if v := r.URL.Query().Get("last"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid", "last must be a non-negative integer")
			return
		}
		n = parsed
	}

	var entries []events.Entry
	if cam := r.URL.Query().Get("camera"); cam != "" {
		entries = s.events.ForCamera(cam, n)
	} else {
		entries = s.events.Last(n)
	}
	if entries == nil {
		entries = []events.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, entries)
}
