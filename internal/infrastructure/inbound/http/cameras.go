package http

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
)

type cameraSummary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	TickInterval  string `json:"tick_interval"`
	FrameInterval string `json:"frame_interval"`
	BufferBytes   int    `json:"buffer_bytes"`
	BufferHuman   string `json:"buffer_human"`
	Captioned     bool   `json:"captioned"`
	Scheduled     bool   `json:"scheduled"`
	Frames        int    `json:"frames"`
	Subscribers   int    `json:"subscribers"`
	Monitoring    int    `json:"monitoring"`
}

func (s *Server) summarize(c *camera.Compiled) cameraSummary {
	sum := cameraSummary{
		ID:            c.ID,
		Name:          c.Name,
		Kind:          c.Kind,
		TickInterval:  c.TickInterval.String(),
		FrameInterval: c.FrameInterval.String(),
		BufferBytes:   c.BufferBytes,
		BufferHuman:   humanize.IBytes(uint64(c.BufferBytes)),
		Captioned:     c.Caption != nil,
		Scheduled:     c.Schedule != nil,
	}
	if st, ok := s.stages.Get(c.ID); ok {
		sum.Frames = st.Stats().Frames
	}
	if s.hub != nil {
		sum.Subscribers = s.hub.Subscribers(c.ID)
	}
	if s.sessions != nil {
		sum.Monitoring = s.sessions.Monitoring(c.ID)
	}
	return sum
}

func (s *Server) handleListCameras(w http.ResponseWriter, _ *http.Request) {
	out := []cameraSummary{}
	if idx := s.index.Load(); idx != nil {
		for _, c := range idx.All() {
			out = append(out, s.summarize(c))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, out)
}

func (s *Server) handleGetCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cameraID")
	if s.repo == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	c, err := s.repo.LoadByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	sourceYAML, err := s.repo.ReadSourceYAML(r.Context(), c)
	if err != nil {
		s.logger.Warn("failed to read source YAML", "id", id, "error", err)
	}

	relPath := c.SourceFile
	if s.rootDir != "" {
		if rel, err := filepath.Rel(s.rootDir, c.SourceFile); err == nil {
			relPath = rel
		}
	}

	resp := map[string]any{
		"id":           c.ID,
		"name":         c.Name,
		"source":       buildSourceJSON(c.Source),
		"source_file":  relPath,
		"source_index": c.SourceIndex,
		"source_yaml":  string(sourceYAML),
		"loaded":       false,
	}
	if c.SampleWhen != "" {
		resp["sample_when"] = c.SampleWhen
	}
	if c.Caption != nil {
		resp["caption"] = map[string]string{"engine": c.Caption.Engine, "template": c.Caption.Template}
	}
	if c.RateLimit != nil {
		resp["rate_limit"] = map[string]any{"rate": c.RateLimit.Rate, "burst": c.RateLimit.Burst}
	}
	if idx := s.index.Load(); idx != nil {
		if compiled, ok := idx.Lookup(id); ok {
			resp["loaded"] = true
			resp["runtime"] = s.summarize(compiled)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

func buildSourceJSON(src camera.Source) map[string]any {
	out := map[string]any{"kind": src.Kind}
	if src.URL != "" {
		out["url"] = src.URL
	}
	if src.Dir != "" {
		out["dir"] = src.Dir
	}
	if src.Path != "" {
		out["path"] = src.Path
	}
	if src.XPath != "" {
		out["xpath"] = src.XPath
	}
	if src.Width > 0 && src.Height > 0 {
		out["width"] = src.Width
		out["height"] = src.Height
	}
	if src.Quality > 0 {
		out["quality"] = src.Quality
	}
	if src.Timeout > 0 {
		out["timeout"] = src.Timeout.String()
	}
	return out
}

func (s *Server) handleUpdateCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cameraID")
	if s.saveUC == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if _, err := s.saveUC.Execute(r.Context(), id, body); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.Reload(r.Context()); err != nil {
		s.logger.Error("reload after save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": "ok", "message": "camera updated", "id": id})
}

func (s *Server) handleCreateCamera(w http.ResponseWriter, r *http.Request) {
	if s.saveUC == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	id, err := s.saveUC.Execute(r.Context(), "", body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.Reload(r.Context()); err != nil {
		s.logger.Error("reload after create failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/api/v1/cameras/"+id)
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]string{"status": "ok", "message": "camera created", "id": id})
}

func (s *Server) handleDeleteCamera(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cameraID")
	if s.deleteUC == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	if err := s.deleteUC.Execute(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.Reload(r.Context()); err != nil {
		s.logger.Error("reload after delete failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
