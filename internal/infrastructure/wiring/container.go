package wiring

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/events"
	inboundhttp "github.com/sophialabs/coopwatch/internal/infrastructure/inbound/http"
	"github.com/sophialabs/coopwatch/internal/infrastructure/outbound/clock"
	"github.com/sophialabs/coopwatch/internal/infrastructure/outbound/filesystem"
	"github.com/sophialabs/coopwatch/internal/infrastructure/outbound/idgen"
	"github.com/sophialabs/coopwatch/internal/infrastructure/outbound/ratelimit"
	"github.com/sophialabs/coopwatch/internal/infrastructure/outbound/source"
	"github.com/sophialabs/coopwatch/internal/infrastructure/outbound/template"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
	"github.com/sophialabs/coopwatch/internal/infrastructure/sampler"
	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
	"github.com/sophialabs/coopwatch/internal/infrastructure/usecases"
)

// Params holds the subset of configuration needed to construct infrastructure components.
type Params struct {
	RootDir        string
	EventSize      int
	BufferBytes    int // default stage capacity for cameras that set none
	LiveQueue      int // frames buffered per live subscriber
	RateLimiterTTL time.Duration
	Logger         ports.Logger

	// Clock defaults to the wall clock.
	Clock ports.Clock
}

// Container owns the construction and lifecycle of all infrastructure components.
type Container struct {
	logger           ports.Logger
	repo             *filesystem.YAMLRepository
	server           *inboundhttp.Server
	runner           *sampler.Runner
	sessions         *usecases.SessionManager
	loadUC           *usecases.LoadCamerasUseCase
	hub              *services.Hub
	stages           *services.StageSet
	events           *events.Log
	rateLimiterStore *ratelimit.ClientStore
	closeOnce        sync.Once
}

// New constructs all infrastructure components. Fallible operations run
// before goroutine-starting ones (rate limiter store) to avoid goroutine
// leaks on early failure.
func New(p Params) (*Container, error) {
	if _, err := os.Stat(p.RootDir); err != nil {
		return nil, fmt.Errorf("failed to access root directory: %w", err)
	}
	if p.EventSize <= 0 {
		return nil, fmt.Errorf("event size must be positive, got %d", p.EventSize)
	}

	repo, err := filesystem.NewYAMLRepository(p.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}

	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}

	compiler := services.NewCompiler(source.NewFactory(nil, clk), template.NewRegistry())
	stages := services.NewStageSet()
	hub := services.NewHub(p.LiveQueue)
	eventLog := events.NewLog(p.EventSize)

	loadUC := usecases.NewLoadCamerasUseCase(repo, compiler, p.Logger, p.BufferBytes)
	saveUC := usecases.NewSaveCameraUseCase(repo, compiler, p.Logger)
	deleteUC := usecases.NewDeleteCameraUseCase(repo, p.Logger)
	sampleUC := usecases.NewSampleFrameUseCase(stages, hub, eventLog, source.CaptionOverlay{}, clk, p.Logger)

	runner := sampler.NewRunner(sampleUC, stages, hub, clk, p.Logger)
	sessions := usecases.NewSessionManager(runner, stages, sampleUC, eventLog, idgen.UUID{}, clk, p.Logger)
	runner.OnRemove = func(cameraID string) {
		if n := sessions.CloseCamera(cameraID); n > 0 {
			p.Logger.Info("sessions closed with camera", "camera", cameraID, "sessions", n)
		}
	}

	// Start background goroutine only after all fallible ops succeed.
	rateLimiterStore := ratelimit.NewClientStore(clk, p.RateLimiterTTL)

	server := inboundhttp.NewServer(inboundhttp.Deps{
		Load:     loadUC,
		Save:     saveUC,
		Delete:   deleteUC,
		Repo:     repo,
		RootDir:  p.RootDir,
		Runtime:  runner,
		Stages:   stages,
		Hub:      hub,
		Sessions: sessions,
		Events:   eventLog,
		Limiter:  rateLimiterStore,
		Clock:    clk,
		Logger:   p.Logger,
	})

	return &Container{
		logger:           p.Logger,
		repo:             repo,
		server:           server,
		runner:           runner,
		sessions:         sessions,
		loadUC:           loadUC,
		hub:              hub,
		stages:           stages,
		events:           eventLog,
		rateLimiterStore: rateLimiterStore,
	}, nil
}

// Close stops sampling, ends live feeds and releases resources. It is idempotent.
func (c *Container) Close() {
	c.closeOnce.Do(func() {
		c.runner.Stop()
		c.hub.CloseAll()
		c.rateLimiterStore.Stop()
	})
}

// Logger returns the logger passed at construction time.
func (c *Container) Logger() ports.Logger {
	return c.logger
}

// Server returns the HTTP API server.
func (c *Container) Server() *inboundhttp.Server {
	return c.server
}

// Runner returns the sampler runner.
func (c *Container) Runner() *sampler.Runner {
	return c.runner
}

// Sessions returns the monitoring session manager.
func (c *Container) Sessions() *usecases.SessionManager {
	return c.sessions
}

// LoadCamerasUseCase returns the use case for loading and compiling cameras.
func (c *Container) LoadCamerasUseCase() *usecases.LoadCamerasUseCase {
	return c.loadUC
}

// CamerasDir returns the directory camera definitions are read from.
func (c *Container) CamerasDir() string {
	return c.repo.Dir()
}

// Stages returns the per-camera frame stages.
func (c *Container) Stages() *services.StageSet {
	return c.stages
}

// Hub returns the live frame hub.
func (c *Container) Hub() *services.Hub {
	return c.hub
}

// Events returns the event log.
func (c *Container) Events() *events.Log {
	return c.events
}

// RateLimiterStore returns the per-client frame read limiter.
func (c *Container) RateLimiterStore() *ratelimit.ClientStore {
	return c.rateLimiterStore
}
