package events

import "sync"

// Log is a concurrent-safe fixed-size ring of entries. Once full, each Add
// overwrites the oldest entry.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	size    int
	head    int
	count   int
}

// NewLog creates a log that keeps the last size entries.
func NewLog(size int) *Log {
	if size <= 0 {
		size = 200
	}
	return &Log{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Add records e.
func (l *Log) Add(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.head] = e
	l.head = (l.head + 1) % l.size
	if l.count < l.size {
		l.count++
	}
}

// Last returns the last n entries in chronological order.
func (l *Log) Last(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > l.count {
		n = l.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Entry, n)
	start := (l.head - n + l.size) % l.size
	for i := range n {
		result[i] = l.entries[(start+i)%l.size]
	}
	return result
}

// ForCamera returns up to n of the most recent entries for one camera.
func (l *Log) ForCamera(camera string, n int) []Entry {
	all := l.Last(l.Count())
	var out []Entry
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		if all[i].Camera == camera {
			out = append(out, all[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Count returns the number of entries currently stored.
func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}
