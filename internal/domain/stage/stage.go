// Package stage keeps a rolling window of encoded frames for one camera.
//
// Frames are stored as length-prefixed records in a single ringbuf.RingBuffer.
// When a new record does not fit, whole records are evicted from the oldest
// end until it does, so the byte buffer never truncates a record.
package stage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sophialabs/coopwatch/internal/domain/frame"
	"github.com/sophialabs/coopwatch/internal/domain/ringbuf"
)

// ErrFrameTooLarge is returned by Put when a single frame cannot fit even in
// an empty stage.
var ErrFrameTooLarge = errors.New("frame larger than stage capacity")

// ErrInvalidFrame is returned by Put when a frame's metadata cannot be
// recorded, such as dimensions above MaxDimension.
var ErrInvalidFrame = errors.New("invalid frame")

// PutResult describes what a Put did to the stage.
type PutResult struct {
	Evicted int // records removed to make room
	Bytes   int // record bytes written, header included
}

// Stage is a concurrent-safe frame window over a byte ring buffer.
type Stage struct {
	mu     sync.Mutex
	camera string
	buf    *ringbuf.RingBuffer
	frames int
	latest frame.Frame

	staged  uint64
	dropped uint64
	evicted uint64
	drained uint64
}

// New creates a stage for camera holding at most capacity bytes of records.
func New(camera string, capacity int) (*Stage, error) {
	if capacity <= headerSize {
		return nil, fmt.Errorf("stage capacity %d must exceed record header (%d bytes): %w", capacity, headerSize, ringbuf.ErrInvalidCapacity)
	}
	buf, err := ringbuf.New(capacity)
	if err != nil {
		return nil, err
	}
	return &Stage{camera: camera, buf: buf}, nil
}

// Camera returns the camera ID this stage belongs to.
func (s *Stage) Camera() string { return s.camera }

// Put appends f, evicting the oldest frames as needed.
func (s *Stage) Put(f frame.Frame) (PutResult, error) {
	if err := checkFrame(f); err != nil {
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return PutResult{}, err
	}
	rec := encodeRecord(f)
	latest, err := decodeRecord(s.camera, rec)
	if err != nil {
		return PutResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(rec) > s.buf.Cap() {
		s.dropped++
		return PutResult{}, fmt.Errorf("frame %d is %d bytes, stage holds %d: %w", f.Seq, len(rec), s.buf.Cap(), ErrFrameTooLarge)
	}

	var res PutResult
	for s.buf.Free() < len(rec) {
		if err := s.discardOldest(); err != nil {
			// Corrupt window: drop everything.
			s.resetLocked()
			break
		}
		res.Evicted++
	}
	s.evicted += uint64(res.Evicted)

	res.Bytes = s.buf.Push(rec)
	s.frames++
	s.staged++

	s.latest = latest
	return res, nil
}

// Latest returns a copy of the newest resident frame.
func (s *Stage) Latest() (frame.Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frames == 0 {
		return frame.Frame{}, false
	}
	f := s.latest
	f.Data = append([]byte(nil), s.latest.Data...)
	return f, true
}

// Drain removes and returns up to limit of the oldest frames. limit <= 0
// drains all of them.
func (s *Stage) Drain(limit int) []frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > s.frames {
		limit = s.frames
	}
	out := make([]frame.Frame, 0, limit)
	for range limit {
		rec, err := s.popRecord()
		if err != nil {
			s.resetLocked()
			break
		}
		f, err := decodeRecord(s.camera, rec)
		if err != nil {
			s.resetLocked()
			break
		}
		out = append(out, f)
	}
	s.drained += uint64(len(out))
	return out
}

// Snapshot returns copies of all resident frames, oldest first, without
// consuming them.
func (s *Stage) Snapshot() []frame.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.buf.Peek(s.buf.Size())
	out := make([]frame.Frame, 0, s.frames)
	for len(raw) >= headerSize {
		n, err := bodyLength(raw)
		if err != nil || len(raw) < headerSize+n {
			break
		}
		f, err := decodeRecord(s.camera, raw[:headerSize+n])
		if err != nil {
			break
		}
		out = append(out, f)
		raw = raw[headerSize+n:]
	}
	return out
}

// Clear drops every resident frame. Counters are kept.
func (s *Stage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Stats returns a snapshot of the stage counters.
func (s *Stage) Stats() frame.StageStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return frame.StageStats{
		Camera:   s.camera,
		Capacity: s.buf.Cap(),
		Size:     s.buf.Size(),
		Frames:   s.frames,
		Staged:   s.staged,
		Dropped:  s.dropped,
		Evicted:  s.evicted,
		Drained:  s.drained,
	}
}

func (s *Stage) popRecord() ([]byte, error) {
	n, err := bodyLength(s.buf.Peek(headerSize))
	if err != nil {
		return nil, err
	}
	if s.buf.Size() < headerSize+n {
		return nil, errCorruptRecord
	}
	s.frames--
	return s.buf.Pop(headerSize + n), nil
}

func (s *Stage) discardOldest() error {
	_, err := s.popRecord()
	return err
}

func (s *Stage) resetLocked() {
	s.buf.Clear()
	s.frames = 0
	s.latest = frame.Frame{}
}
