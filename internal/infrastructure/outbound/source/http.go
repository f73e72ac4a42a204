package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

var _ camera.FrameSource = (*HTTPSnapshot)(nil)

const defaultTimeout = 5 * time.Second

// MaxBodyBytes bounds every response body a source reads.
const MaxBodyBytes = 16 << 20

// ErrBodyTooLarge is returned when a response exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body too large")

// HTTPSnapshot fetches one still image per Grab from a snapshot URL.
type HTTPSnapshot struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPSnapshot creates a snapshot source. A nil client means http.DefaultClient.
func NewHTTPSnapshot(url string, client *http.Client, timeout time.Duration) *HTTPSnapshot {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSnapshot{url: url, client: client, timeout: timeout}
}

func (s *HTTPSnapshot) Grab(ctx context.Context) (frame.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, contentType, err := fetch(ctx, s.client, s.url)
	if err != nil {
		return frame.Image{}, err
	}
	return describe(data, contentType), nil
}

// fetch GETs url and returns the body and its declared content type.
func fetch(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", url, err)
	}
	if len(data) > MaxBodyBytes {
		return nil, "", fmt.Errorf("fetch %s: more than %d bytes: %w", url, MaxBodyBytes, ErrBodyTooLarge)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
