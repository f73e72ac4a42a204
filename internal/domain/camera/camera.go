package camera

import "time"

// Source kinds.
const (
	SourceSynthetic = "synthetic"
	SourceFile      = "file"
	SourceHTTP      = "http"
	SourceJSON      = "json"
	SourceXML       = "xml"
)

// Defaults applied by the compiler when a definition leaves a field empty.
const (
	DefaultTickInterval  = time.Second
	DefaultFrameInterval = 3 * time.Second
	DefaultBufferBytes   = 5 * 1024 * 1024
	DefaultWidth         = 320
	DefaultHeight        = 180
	DefaultQuality       = 60
	DefaultJSONPath      = "$.frame"
	DefaultSnapshotXPath = "//SnapshotUri/Uri"
)

// Camera is one camera definition as loaded from disk.
type Camera struct {
	ID            string
	Name          string
	Source        Source
	TickInterval  time.Duration
	FrameInterval time.Duration
	BufferBytes   int
	Caption       *Caption
	SampleWhen    string // expr boolean; empty means always
	RateLimit     *RateLimit

	// SourceFile is the file this camera was loaded from.
	SourceFile string
	// SourceIndex is the position in a multi-camera file, or -1 for a single-camera file.
	SourceIndex int
}

// Source describes where frames come from.
type Source struct {
	Kind    string
	URL     string // http, json, xml
	Dir     string // file
	Path    string // json: JSONPath of the base64 frame
	XPath   string // xml: XPath of the snapshot URI
	Width   int
	Height  int
	Quality int // synthetic: JPEG quality 1-100
	Timeout time.Duration
}

// Caption is a template drawn onto synthetic frames.
type Caption struct {
	Engine   string // "" = static, "expr", "jinja2"
	Template string
}

// RateLimit configures token-bucket limiting of frame reads per client.
type RateLimit struct {
	Rate  float64
	Burst int
}
