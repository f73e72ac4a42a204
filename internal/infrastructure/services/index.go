package services

import (
	"fmt"
	"sort"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
)

// CameraIndex holds the compiled cameras of one load, keyed by ID.
type CameraIndex struct {
	byID map[string]*camera.Compiled
	ids  []string
}

// NewCameraIndex creates an empty index.
func NewCameraIndex() *CameraIndex {
	return &CameraIndex{byID: make(map[string]*camera.Compiled)}
}

// Add inserts a camera. Duplicate IDs are rejected.
func (idx *CameraIndex) Add(c *camera.Compiled) error {
	if _, ok := idx.byID[c.ID]; ok {
		return fmt.Errorf("duplicate camera id %q", c.ID)
	}
	idx.byID[c.ID] = c
	idx.ids = append(idx.ids, c.ID)
	sort.Strings(idx.ids)
	return nil
}

// Lookup returns the camera with the given ID.
func (idx *CameraIndex) Lookup(id string) (*camera.Compiled, bool) {
	c, ok := idx.byID[id]
	return c, ok
}

// IDs returns camera IDs in ascending order.
func (idx *CameraIndex) IDs() []string {
	return idx.ids
}

// All returns the cameras in ID order.
func (idx *CameraIndex) All() []*camera.Compiled {
	all := make([]*camera.Compiled, 0, len(idx.ids))
	for _, id := range idx.ids {
		all = append(all, idx.byID[id])
	}
	return all
}

// Len returns the number of cameras.
func (idx *CameraIndex) Len() int {
	return len(idx.ids)
}
