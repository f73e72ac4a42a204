package source

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

var _ camera.FrameSource = (*JSONEnvelope)(nil)

// JSONEnvelope fetches a JSON document and extracts a base64 frame from it
// with a JSONPath expression. Data URLs ("data:image/jpeg;base64,...") are
// accepted as well as bare base64.
type JSONEnvelope struct {
	url     string
	path    string
	client  *http.Client
	timeout time.Duration
}

// NewJSONEnvelope creates a JSON source. An empty path means $.frame.
func NewJSONEnvelope(url, path string, client *http.Client, timeout time.Duration) *JSONEnvelope {
	if path == "" {
		path = camera.DefaultJSONPath
	}
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &JSONEnvelope{url: url, path: path, client: client, timeout: timeout}
}

func (s *JSONEnvelope) Grab(ctx context.Context) (frame.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, _, err := fetch(ctx, s.client, s.url)
	if err != nil {
		return frame.Image{}, err
	}
	return ExtractJSONFrame(body, s.path)
}

// ExtractJSONFrame pulls the base64 frame at path out of a JSON document.
func ExtractJSONFrame(body []byte, path string) (frame.Image, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return frame.Image{}, fmt.Errorf("decode json envelope: %w", err)
	}
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return frame.Image{}, fmt.Errorf("jsonpath %s: %w", path, err)
	}
	encoded, ok := v.(string)
	if !ok {
		return frame.Image{}, fmt.Errorf("jsonpath %s: expected string, got %T", path, v)
	}

	declared := ""
	if rest, found := strings.CutPrefix(encoded, "data:"); found {
		meta, payload, ok := strings.Cut(rest, ",")
		if !ok || !strings.HasSuffix(meta, ";base64") {
			return frame.Image{}, fmt.Errorf("jsonpath %s: unsupported data URL", path)
		}
		declared = strings.TrimSuffix(meta, ";base64")
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return frame.Image{}, fmt.Errorf("jsonpath %s: decode base64: %w", path, err)
	}
	return describe(data, declared), nil
}
