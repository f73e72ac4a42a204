package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/sophialabs/coopwatch/internal/domain/frame"
	"github.com/sophialabs/coopwatch/internal/domain/stage"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
)

const liveWriteWait = 5 * time.Second

type bufferResponse struct {
	frame.StageStats
	SizeHuman     string  `json:"size_human"`
	CapacityHuman string  `json:"capacity_human"`
	Fill          float64 `json:"fill"`
	Subscribers   int     `json:"subscribers"`
}

type drainResponse struct {
	Camera    string        `json:"camera"`
	Count     int           `json:"count"`
	Remaining int           `json:"remaining"`
	Frames    []frame.Frame `json:"frames"`
}

// stageFor returns the stage of the request's camera, writing a 404 when
// the sampler has not created it yet.
func (s *Server) stageFor(w http.ResponseWriter, r *http.Request) (*stage.Stage, bool) {
	cam := cameraFrom(r.Context())
	st, ok := s.stages.Get(cam.ID)
	if !ok {
		writeError(w, http.StatusNotFound, "no_stage", "camera "+cam.ID+" has no frame stage")
		return nil, false
	}
	return st, true
}

func (s *Server) handleBufferStats(w http.ResponseWriter, r *http.Request) {
	st, ok := s.stageFor(w, r)
	if !ok {
		return
	}
	stats := st.Stats()
	resp := bufferResponse{
		StageStats:    stats,
		SizeHuman:     humanize.IBytes(uint64(stats.Size)),
		CapacityHuman: humanize.IBytes(uint64(stats.Capacity)),
		Subscribers:   s.hub.Subscribers(stats.Camera),
	}
	if stats.Capacity > 0 {
		resp.Fill = float64(stats.Size) / float64(stats.Capacity)
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

func (s *Server) handleClearBuffer(w http.ResponseWriter, r *http.Request) {
	st, ok := s.stageFor(w, r)
	if !ok {
		return
	}
	st.Clear()
	s.logger.Info("frame stage cleared", "camera", st.Camera())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLatestFrame(w http.ResponseWriter, r *http.Request) {
	st, ok := s.stageFor(w, r)
	if !ok {
		return
	}
	f, ok := st.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no_frame", "no frame staged for camera "+st.Camera())
		return
	}

	h := w.Header()
	h.Set("Content-Type", f.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(f.Data)))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Frame-Seq", strconv.FormatUint(f.Seq, 10))
	h.Set("X-Frame-Timestamp", f.Timestamp.UTC().Format(time.RFC3339Nano))
	_, _ = w.Write(f.Data)
}

func (s *Server) handleDrainFrames(w http.ResponseWriter, r *http.Request) {
	st, ok := s.stageFor(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid", "max must be a non-negative integer")
			return
		}
		limit = n
	}

	frames := st.Drain(limit)
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, drainResponse{
		Camera:    st.Camera(),
		Count:     len(frames),
		Remaining: st.Stats().Frames,
		Frames:    frames,
	})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	cam := cameraFrom(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		s.logger.Warn("live feed upgrade failed", "camera", cam.ID, "error", err)
		return
	}

	feed := &liveFeed{
		camera: cam.ID,
		conn:   conn,
		sub:    s.hub.Subscribe(cam.ID),
		logger: s.logger,
	}
	s.logger.Info("live feed opened", "camera", cam.ID, "client", clientAddr(r))
	feed.run()
}

// liveCommand is a text message sent by a live feed client.
type liveCommand struct {
	Command string `json:"command"` // "pause" or "resume"
}

// liveFeed pushes one binary WebSocket message per sampled frame.
type liveFeed struct {
	camera string
	conn   *websocket.Conn
	sub    *services.Subscription
	logger ports.Logger
	paused atomic.Bool
	sent   uint64
}

func (f *liveFeed) run() {
	defer f.conn.Close()
	defer f.sub.Close()

	done := make(chan struct{})
	go f.read(done)

	for {
		select {
		case fr, ok := <-f.sub.Frames():
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "camera removed")
				_ = f.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(liveWriteWait))
				f.logger.Info("live feed closed", "camera", f.camera, "reason", "camera removed", "sent", f.sent)
				return
			}
			if f.paused.Load() {
				continue
			}
			_ = f.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := f.conn.WriteMessage(websocket.BinaryMessage, fr.Data); err != nil {
				f.logger.Debug("live feed write failed", "camera", f.camera, "error", err)
				return
			}
			f.sent++
		case <-done:
			f.logger.Info("live feed closed", "camera", f.camera, "sent", f.sent, "missed", f.sub.Missed())
			return
		}
	}
}

// read handles client commands until the connection fails or closes.
func (f *liveFeed) read(done chan<- struct{}) {
	defer close(done)
	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd liveCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			f.logger.Debug("ignoring malformed live feed command", "camera", f.camera, "error", err)
			continue
		}
		switch cmd.Command {
		case "pause":
			f.paused.Store(true)
		case "resume":
			f.paused.Store(false)
		}
	}
}
