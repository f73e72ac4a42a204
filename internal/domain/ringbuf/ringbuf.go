// Package ringbuf implements a fixed-capacity circular byte buffer.
//
// Writes never block and never grow the storage: a Push that does not fit
// is truncated to the free space, and the surplus tail of the incoming chunk
// is discarded. Reads copy bytes out oldest-first.
//
// A RingBuffer is not safe for concurrent use. Callers that share one across
// goroutines must serialize every call.
package ringbuf

import "errors"

// ErrInvalidCapacity is returned by New when capacity is not positive.
var ErrInvalidCapacity = errors.New("ring buffer capacity must be positive")

// RingBuffer is a bounded FIFO of bytes backed by one preallocated slice.
type RingBuffer struct {
	buf  []byte
	size int
	head int // oldest unread byte
	tail int // next write position
}

// New allocates an empty ring buffer holding at most capacity bytes.
func New(capacity int) (*RingBuffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &RingBuffer{buf: make([]byte, capacity)}, nil
}

// Push writes the first min(len(data), Free()) bytes of data and drops the
// rest. It returns the number of bytes written.
func (rb *RingBuffer) Push(data []byte) int {
	capacity := len(rb.buf)
	n := min(len(data), capacity-rb.size)
	if n <= 0 {
		return 0
	}

	first := copy(rb.buf[rb.tail:], data[:n])
	if first < n {
		copy(rb.buf, data[first:n])
	}

	rb.tail = (rb.tail + n) % capacity
	rb.size += n

	if rb.size > capacity {
		rb.size = capacity
		rb.head = rb.tail
	}
	return n
}

// Pop removes and returns up to length of the oldest bytes. The returned
// slice never aliases the internal storage.
func (rb *RingBuffer) Pop(length int) []byte {
	out := rb.Peek(length)
	rb.head = (rb.head + len(out)) % len(rb.buf)
	rb.size -= len(out)
	return out
}

// Peek returns a copy of up to length of the oldest bytes without consuming them.
func (rb *RingBuffer) Peek(length int) []byte {
	n := min(max(length, 0), rb.size)
	out := make([]byte, n)
	first := copy(out, rb.buf[rb.head:min(rb.head+n, len(rb.buf))])
	if first < n {
		copy(out[first:], rb.buf[:n-first])
	}
	return out
}

// Size returns the number of buffered bytes.
func (rb *RingBuffer) Size() int { return rb.size }

// Cap returns the fixed capacity.
func (rb *RingBuffer) Cap() int { return len(rb.buf) }

// Free returns the number of bytes the next Push can accept.
func (rb *RingBuffer) Free() int { return len(rb.buf) - rb.size }

// IsEmpty reports whether no bytes are buffered.
func (rb *RingBuffer) IsEmpty() bool { return rb.size == 0 }

// Clear drops all buffered bytes. The storage is reused, not zeroed.
func (rb *RingBuffer) Clear() {
	rb.size = 0
	rb.head = 0
	rb.tail = 0
}
