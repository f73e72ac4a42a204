package events

import "time"

// Kind classifies an event.
type Kind string

const (
	KindStaged  Kind = "staged"
	KindSkipped Kind = "skipped"
	KindDropped Kind = "dropped"
	KindEvicted Kind = "evicted"
	KindError   Kind = "error"
	KindSession Kind = "session"
)

// Entry is one recorded sampler or session event.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Camera    string    `json:"camera"`
	Kind      Kind      `json:"kind"`
	Seq       uint64    `json:"seq,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}
