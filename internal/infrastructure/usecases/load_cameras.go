package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
)

// LoadCamerasUseCase loads all camera definitions, compiles them, and builds an index.
type LoadCamerasUseCase struct {
	repo          camera.Repository
	compiler      *services.Compiler
	logger        ports.Logger
	defaultBuffer int
}

// NewLoadCamerasUseCase creates a new use case. defaultBuffer is the stage
// size for cameras that do not set buffer_bytes.
func NewLoadCamerasUseCase(repo camera.Repository, compiler *services.Compiler, logger ports.Logger, defaultBuffer int) *LoadCamerasUseCase {
	return &LoadCamerasUseCase{
		repo:          repo,
		compiler:      compiler,
		logger:        logger,
		defaultBuffer: defaultBuffer,
	}
}

// Execute loads and compiles every camera. Duplicate IDs fail the whole
// load; a camera that does not compile is skipped with a warning.
func (uc *LoadCamerasUseCase) Execute(ctx context.Context) (*services.CameraIndex, error) {
	cams, err := uc.repo.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cameras: %w", err)
	}
	uc.logger.Info("loaded cameras from repository", "count", len(cams))

	seen := make(map[string]bool, len(cams))
	for _, c := range cams {
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate camera ID: %q", c.ID)
		}
		seen[c.ID] = true
	}

	index := services.NewCameraIndex()
	failed := 0
	for _, c := range cams {
		compiled, err := uc.compiler.CompileCamera(c, uc.defaultBuffer)
		if err != nil {
			failed++
			uc.logger.Warn("failed to compile camera", "id", c.ID, "file", c.SourceFile, "error", err)
			continue
		}
		if err := index.Add(compiled); err != nil {
			return nil, err
		}
		uc.logger.Debug("compiled camera", "id", compiled.ID, "source", compiled.Kind)
	}

	if failed > 0 {
		uc.logger.Warn("some cameras failed to compile", "errors", failed)
	}
	uc.logger.Info("camera index built", "cameras", index.Len())
	return index, nil
}
