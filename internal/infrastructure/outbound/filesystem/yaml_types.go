package filesystem

import "time"

// yamlCamera is the YAML deserialization target for camera files.
type yamlCamera struct {
	ID            string         `yaml:"id"`
	Name          string         `yaml:"name,omitempty"`
	Source        yamlSource     `yaml:"source"`
	TickInterval  time.Duration  `yaml:"tick_interval,omitempty"`
	FrameInterval time.Duration  `yaml:"frame_interval,omitempty"`
	BufferBytes   int            `yaml:"buffer_bytes,omitempty"`
	Caption       *yamlCaption   `yaml:"caption,omitempty"`
	SampleWhen    string         `yaml:"sample_when,omitempty"`
	RateLimit     *yamlRateLimit `yaml:"rate_limit,omitempty"`
}

type yamlSource struct {
	Kind    string        `yaml:"kind"`
	URL     string        `yaml:"url,omitempty"`
	Dir     string        `yaml:"dir,omitempty"`
	Path    string        `yaml:"path,omitempty"`
	XPath   string        `yaml:"xpath,omitempty"`
	Width   int           `yaml:"width,omitempty"`
	Height  int           `yaml:"height,omitempty"`
	Quality int           `yaml:"quality,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

type yamlCaption struct {
	Engine   string `yaml:"engine,omitempty"`
	Template string `yaml:"template"`
}

type yamlRateLimit struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}
