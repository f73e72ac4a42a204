package usecases

import (
	"context"
	"fmt"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
)

// DeleteCameraUseCase removes a camera from its source file.
type DeleteCameraUseCase struct {
	repo   camera.Repository
	logger ports.Logger
}

// NewDeleteCameraUseCase creates a new use case.
func NewDeleteCameraUseCase(repo camera.Repository, logger ports.Logger) *DeleteCameraUseCase {
	return &DeleteCameraUseCase{repo: repo, logger: logger}
}

// Execute removes the camera with the given ID.
func (uc *DeleteCameraUseCase) Execute(ctx context.Context, id string) error {
	existing, err := uc.repo.LoadByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find camera %q: %w", id, err)
	}
	if err := uc.repo.DeleteCamera(ctx, existing.SourceFile, existing.SourceIndex); err != nil {
		return fmt.Errorf("failed to delete camera %q: %w", id, err)
	}
	uc.logger.Info("camera deleted", "id", id)
	return nil
}
