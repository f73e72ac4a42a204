package frame

import "time"

// Content types recognised by the stage record encoding.
const (
	ContentTypeJPEG  = "image/jpeg"
	ContentTypePNG   = "image/png"
	ContentTypeOctet = "application/octet-stream"
)

// Image is the raw output of a frame source before it is stamped and staged.
type Image struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// Frame is one sampled, encoded video frame.
type Frame struct {
	Camera      string    `json:"camera"`
	Seq         uint64    `json:"seq"`
	Timestamp   time.Time `json:"timestamp"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	ContentType string    `json:"content_type"`
	Data        []byte    `json:"data"`
}

// StageStats is a point-in-time view of a camera's frame stage.
type StageStats struct {
	Camera   string `json:"camera"`
	Capacity int    `json:"capacity"`
	Size     int    `json:"size"`
	Frames   int    `json:"frames"`
	Staged   uint64 `json:"staged"`
	Dropped  uint64 `json:"dropped"`
	Evicted  uint64 `json:"evicted"`
	Drained  uint64 `json:"drained"`
}
