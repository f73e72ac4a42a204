package camera

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates a camera was not found.
	ErrNotFound = errors.New("camera not found")
	// ErrAlreadyExists indicates a create for an ID that is already defined.
	ErrAlreadyExists = errors.New("camera already exists")
	// ErrInvalid indicates a definition that cannot be parsed or validated.
	ErrInvalid = errors.New("invalid camera definition")
)

// Repository is the port for loading and persisting camera definitions.
type Repository interface {
	// LoadAll loads every camera under the configured root directory.
	LoadAll(ctx context.Context) ([]*Camera, error)

	// LoadByID loads a single camera. Returns ErrNotFound if it does not exist.
	LoadByID(ctx context.Context, id string) (*Camera, error)

	// SaveCamera writes camera YAML. An existing camera (SourceFile set) is
	// updated in place; otherwise a new file is created.
	SaveCamera(ctx context.Context, c *Camera, yamlContent []byte) error

	// DeleteCamera removes a camera from its source file.
	DeleteCamera(ctx context.Context, sourceFile string, sourceIndex int) error

	// ParseCamera decodes a single camera definition. Errors wrap ErrInvalid.
	ParseCamera(data []byte) (*Camera, error)

	// ReadSourceYAML returns the raw YAML of one camera.
	ReadSourceYAML(ctx context.Context, c *Camera) ([]byte, error)
}
