package services

import (
	"sync"
	"sync/atomic"

	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

const defaultSubscriberQueue = 4

// Hub fans sampled frames out to live subscribers. Publishing never blocks:
// a subscriber whose queue is full misses the frame.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	queue  int
	missed atomic.Uint64
}

// Subscription is one live feed of a camera's frames.
type Subscription struct {
	camera string
	ch     chan frame.Frame
	missed atomic.Uint64
	once   sync.Once
	hub    *Hub
}

// NewHub creates a hub whose subscribers buffer up to queue frames.
func NewHub(queue int) *Hub {
	if queue <= 0 {
		queue = defaultSubscriberQueue
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), queue: queue}
}

// Subscribe registers a feed for cameraID. Call Close when done.
func (h *Hub) Subscribe(cameraID string) *Subscription {
	sub := &Subscription{camera: cameraID, ch: make(chan frame.Frame, h.queue), hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[cameraID] == nil {
		h.subs[cameraID] = make(map[*Subscription]struct{})
	}
	h.subs[cameraID][sub] = struct{}{}
	return sub
}

// Publish offers f to every subscriber of its camera.
func (h *Hub) Publish(f frame.Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[f.Camera] {
		select {
		case sub.ch <- f:
		default:
			sub.missed.Add(1)
			h.missed.Add(1)
		}
	}
}

// CloseCamera ends every feed of cameraID.
func (h *Hub) CloseCamera(cameraID string) {
	h.mu.Lock()
	subs := h.subs[cameraID]
	delete(h.subs, cameraID)
	h.mu.Unlock()

	for sub := range subs {
		sub.once.Do(func() { close(sub.ch) })
	}
}

// CloseAll ends every feed of every camera.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	all := h.subs
	h.subs = make(map[string]map[*Subscription]struct{})
	h.mu.Unlock()

	for _, subs := range all {
		for sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
	}
}

// Subscribers returns the number of feeds on cameraID.
func (h *Hub) Subscribers(cameraID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[cameraID])
}

// Missed returns the number of frames dropped across all subscribers.
func (h *Hub) Missed() uint64 {
	return h.missed.Load()
}

// Frames returns the channel of frames. It is closed when the subscription
// or its camera goes away.
func (s *Subscription) Frames() <-chan frame.Frame {
	return s.ch
}

// Missed returns how many frames this subscriber dropped.
func (s *Subscription) Missed() uint64 {
	return s.missed.Load()
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	if subs, ok := s.hub.subs[s.camera]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.hub.subs, s.camera)
		}
	}
	s.hub.mu.Unlock()
	s.once.Do(func() { close(s.ch) })
}
