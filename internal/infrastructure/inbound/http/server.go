package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/events"
	"github.com/sophialabs/coopwatch/internal/domain/monitor"
	"github.com/sophialabs/coopwatch/internal/domain/stage"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
	"github.com/sophialabs/coopwatch/internal/infrastructure/usecases"
)

const maxBodySize = 1 << 20 // 1 MB

// CameraRuntime receives every freshly loaded camera index.
type CameraRuntime interface {
	Apply(idx *services.CameraIndex) error
}

// Deps are the collaborators of a Server. The CRUD fields are optional;
// without them the camera write endpoints answer 501.
type Deps struct {
	Load     *usecases.LoadCamerasUseCase
	Save     *usecases.SaveCameraUseCase
	Delete   *usecases.DeleteCameraUseCase
	Repo     camera.Repository
	RootDir  string
	Runtime  CameraRuntime
	Stages   *services.StageSet
	Hub      *services.Hub
	Sessions *usecases.SessionManager
	Events   *events.Log
	Limiter  ports.RateLimiter
	Clock    ports.Clock
	Logger   ports.Logger
}

// Server is the coopwatch HTTP API.
type Server struct {
	router    atomic.Pointer[chi.Mux]
	index     atomic.Pointer[services.CameraIndex]
	rebuildMu sync.Mutex

	loadUC   *usecases.LoadCamerasUseCase
	saveUC   *usecases.SaveCameraUseCase
	deleteUC *usecases.DeleteCameraUseCase
	repo     camera.Repository
	rootDir  string

	runtime  CameraRuntime
	stages   *services.StageSet
	hub      *services.Hub
	sessions *usecases.SessionManager
	events   *events.Log
	limiter  ports.RateLimiter
	clock    ports.Clock
	logger   ports.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a Server. It answers 503 until the first Rebuild.
func NewServer(d Deps) *Server {
	return &Server{
		loadUC:   d.Load,
		saveUC:   d.Save,
		deleteUC: d.Delete,
		repo:     d.Repo,
		rootDir:  d.RootDir,
		runtime:  d.Runtime,
		stages:   d.Stages,
		hub:      d.Hub,
		sessions: d.Sessions,
		events:   d.Events,
		limiter:  d.Limiter,
		clock:    d.Clock,
		logger:   d.Logger,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 64 * 1024},
	}
}

// BuildRouter creates a chi.Mux whose per-camera routes resolve against idx.
func (s *Server) BuildRouter(idx *services.CameraIndex) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/events", s.handleEvents)

		r.Route("/cameras", func(r chi.Router) {
			r.Get("/", s.handleListCameras)
			r.Post("/", s.handleCreateCamera)

			r.Route("/{cameraID}", func(r chi.Router) {
				r.Get("/", s.handleGetCamera)
				r.Put("/", s.handleUpdateCamera)
				r.Delete("/", s.handleDeleteCamera)

				r.Group(func(r chi.Router) {
					r.Use(s.cameraCtx(idx))
					r.Get("/buffer", s.handleBufferStats)
					r.Delete("/buffer", s.handleClearBuffer)

					r.Group(func(r chi.Router) {
						r.Use(s.rateLimit)
						r.Get("/frames/latest", s.handleLatestFrame)
						r.Post("/frames/drain", s.handleDrainFrames)
						r.Get("/live", s.handleLive)
					})
				})
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleConnectSession)
			r.Get("/{sessionID}", s.handleGetSession)
			r.Delete("/{sessionID}", s.handleDisconnectSession)
			r.Post("/{sessionID}/start", s.handleStartSession)
			r.Post("/{sessionID}/stop", s.handleStopSession)
			r.Post("/{sessionID}/screenshot", s.handleScreenshot)
		})
	})

	r.Post("/__admin/reload", s.handleReload)

	r.NotFound(s.notFoundHandler)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed on "+r.URL.Path)
	})

	return r
}

// Rebuild atomically swaps the router and index. Serialized via mutex.
func (s *Server) Rebuild(idx *services.CameraIndex) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	r := s.BuildRouter(idx)
	s.index.Store(idx)
	s.router.Store(r)
	s.logger.Info("router rebuilt", "cameras", idx.Len())
}

// Reload loads the camera definitions, hands them to the runtime and swaps
// the router.
func (s *Server) Reload(ctx context.Context) error {
	idx, err := s.loadUC.Execute(ctx)
	if err != nil {
		return err
	}
	if s.runtime != nil {
		if err := s.runtime.Apply(idx); err != nil {
			return err
		}
	}
	s.Rebuild(idx)
	return nil
}

// ServeHTTP implements http.Handler using the atomic router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	router := s.router.Load()
	if router == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	router.ServeHTTP(w, r)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("request received (no route)", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
	writeError(w, http.StatusNotFound, "no_route", "no route for "+r.Method+" "+r.URL.Path)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	cameras := 0
	if idx := s.index.Load(); idx != nil {
		cameras = idx.Len()
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"status": "ok", "cameras": cameras})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		s.logger.Error("reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", "camera reload failed, check server logs")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"status":  "ok",
		"message": "cameras reloaded",
	})
}

type cameraKey struct{}

// cameraCtx resolves {cameraID} against idx and stores the camera in the
// request context.
func (s *Server) cameraCtx(idx *services.CameraIndex) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "cameraID")
			cam, ok := idx.Lookup(id)
			if !ok {
				writeError(w, http.StatusNotFound, "not_found", "camera not found: "+id)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), cameraKey{}, cam)))
		})
	}
}

func cameraFrom(ctx context.Context) *camera.Compiled {
	cam, _ := ctx.Value(cameraKey{}).(*camera.Compiled)
	return cam
}

// rateLimit applies the camera's per-client token bucket to frame reads.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cam := cameraFrom(r.Context())
		if cam != nil && cam.RateLimit != nil && s.limiter != nil {
			key := cam.ID + "|" + clientAddr(r)
			if !s.limiter.Allow(r.Context(), key, cam.RateLimit.Rate, cam.RateLimit.Burst) {
				s.logger.Debug("frame read rate limited", "camera", cam.ID, "client", clientAddr(r))
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many frame reads for camera "+cam.ID)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr is the remote host without its port. RealIP may already have
// replaced RemoteAddr with a bare address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeDomainError maps domain sentinel errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, camera.ErrNotFound), errors.Is(err, monitor.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, camera.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, monitor.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, stage.ErrFrameTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "frame_too_large", err.Error())
	case errors.Is(err, stage.ErrInvalidFrame):
		writeError(w, http.StatusUnprocessableEntity, "invalid_frame", err.Error())
	case errors.Is(err, camera.ErrInvalid):
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
