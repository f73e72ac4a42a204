package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
	"github.com/sophialabs/coopwatch/internal/infrastructure/services"
)

// SaveCameraUseCase creates or replaces a camera definition on disk.
type SaveCameraUseCase struct {
	repo     camera.Repository
	compiler *services.Compiler
	logger   ports.Logger
}

// NewSaveCameraUseCase creates a new use case.
func NewSaveCameraUseCase(repo camera.Repository, compiler *services.Compiler, logger ports.Logger) *SaveCameraUseCase {
	return &SaveCameraUseCase{repo: repo, compiler: compiler, logger: logger}
}

// Execute compiles yamlContent and writes it only if it would load. With id == "" a new camera
// is created and its ID returned; otherwise the camera id is replaced in
// place and the YAML must keep the same ID.
func (uc *SaveCameraUseCase) Execute(ctx context.Context, id string, yamlContent []byte) (string, error) {
	parsed, err := uc.repo.ParseCamera(yamlContent)
	if err != nil {
		return "", err
	}
	if _, err := uc.compiler.CompileCamera(parsed, 0); err != nil {
		return "", err
	}

	if id == "" {
		_, err := uc.repo.LoadByID(ctx, parsed.ID)
		switch {
		case err == nil:
			return "", fmt.Errorf("camera %q: %w", parsed.ID, camera.ErrAlreadyExists)
		case !errors.Is(err, camera.ErrNotFound):
			return "", err
		}

		if err := uc.repo.SaveCamera(ctx, &camera.Camera{ID: parsed.ID}, yamlContent); err != nil {
			return "", fmt.Errorf("failed to create camera %q: %w", parsed.ID, err)
		}
		uc.logger.Info("camera created", "id", parsed.ID)
		return parsed.ID, nil
	}

	if parsed.ID != id {
		return "", fmt.Errorf("%w: id %q in body does not match %q", camera.ErrInvalid, parsed.ID, id)
	}
	existing, err := uc.repo.LoadByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to find camera %q: %w", id, err)
	}
	if err := uc.repo.SaveCamera(ctx, existing, yamlContent); err != nil {
		return "", fmt.Errorf("failed to save camera %q: %w", id, err)
	}
	uc.logger.Info("camera updated", "id", id)
	return id, nil
}
