package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sophialabs/coopwatch/internal/domain/stage"
)

// StageSet owns the frame stage of every active camera.
type StageSet struct {
	mu     sync.RWMutex
	stages map[string]*stage.Stage
}

// NewStageSet creates an empty set.
func NewStageSet() *StageSet {
	return &StageSet{stages: make(map[string]*stage.Stage)}
}

// Ensure returns the stage for cameraID, creating it with capacity bytes if
// needed. An existing stage is kept (with its frames) unless its capacity
// differs, in which case it is replaced by an empty one.
func (s *StageSet) Ensure(cameraID string, capacity int) (*stage.Stage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.stages[cameraID]; ok && st.Stats().Capacity == capacity {
		return st, nil
	}
	st, err := stage.New(cameraID, capacity)
	if err != nil {
		return nil, fmt.Errorf("camera %q: %w", cameraID, err)
	}
	s.stages[cameraID] = st
	return st, nil
}

// Get returns the stage for cameraID.
func (s *StageSet) Get(cameraID string) (*stage.Stage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stages[cameraID]
	return st, ok
}

// Retain drops every stage whose camera is not in ids and returns the
// dropped camera IDs.
func (s *StageSet) Retain(ids []string) []string {
	keep := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped []string
	for id := range s.stages {
		if _, ok := keep[id]; !ok {
			delete(s.stages, id)
			dropped = append(dropped, id)
		}
	}
	sort.Strings(dropped)
	return dropped
}

// IDs returns the camera IDs that have a stage, sorted.
func (s *StageSet) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.stages))
	for id := range s.stages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
