package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

var _ camera.FrameSource = (*Directory)(nil)

// ErrNoImages is returned when a directory source has nothing to play back.
var ErrNoImages = errors.New("no images in directory")

// Directory plays back the .jpg/.jpeg/.png files of a directory in name
// order, looping at the end. The listing is re-read on every wrap so new
// files are picked up.
type Directory struct {
	dir string

	mu    sync.Mutex
	files []string
	next  int
}

// NewDirectory creates a playback source over dir.
func NewDirectory(dir string) *Directory {
	return &Directory{dir: dir}
}

func (d *Directory) Grab(ctx context.Context) (frame.Image, error) {
	if err := ctx.Err(); err != nil {
		return frame.Image{}, err
	}

	d.mu.Lock()
	if d.next >= len(d.files) {
		files, err := listImages(d.dir)
		if err != nil {
			d.mu.Unlock()
			return frame.Image{}, err
		}
		d.files, d.next = files, 0
	}
	if len(d.files) == 0 {
		d.mu.Unlock()
		return frame.Image{}, fmt.Errorf("%s: %w", d.dir, ErrNoImages)
	}
	path := d.files[d.next]
	d.next++
	d.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return frame.Image{}, fmt.Errorf("read frame file: %w", err)
	}
	return describe(data, ""), nil
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list frame directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}
