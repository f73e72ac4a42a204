package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

var _ camera.FrameSource = (*XMLDevice)(nil)

// XMLDevice reads a device description document, finds the snapshot URI
// with an XPath expression and fetches the image behind it.
type XMLDevice struct {
	url     string
	xpath   string
	client  *http.Client
	timeout time.Duration
}

// NewXMLDevice creates an XML source. An empty xpath means //SnapshotUri/Uri.
func NewXMLDevice(descriptionURL, xpath string, client *http.Client, timeout time.Duration) *XMLDevice {
	if xpath == "" {
		xpath = camera.DefaultSnapshotXPath
	}
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &XMLDevice{url: descriptionURL, xpath: xpath, client: client, timeout: timeout}
}

func (s *XMLDevice) Grab(ctx context.Context) (frame.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, _, err := fetch(ctx, s.client, s.url)
	if err != nil {
		return frame.Image{}, err
	}
	snapshot, err := SnapshotURI(body, s.xpath, s.url)
	if err != nil {
		return frame.Image{}, err
	}

	data, contentType, err := fetch(ctx, s.client, snapshot)
	if err != nil {
		return frame.Image{}, err
	}
	return describe(data, contentType), nil
}

// SnapshotURI evaluates xpath against an XML document and resolves the
// result against base.
func SnapshotURI(doc []byte, xpath, base string) (string, error) {
	root, err := xmlquery.Parse(bytes.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("parse device description: %w", err)
	}
	node, err := xmlquery.Query(root, xpath)
	if err != nil {
		return "", fmt.Errorf("xpath %s: %w", xpath, err)
	}
	if node == nil {
		return "", fmt.Errorf("xpath %s: no match", xpath)
	}
	raw := strings.TrimSpace(node.InnerText())
	if raw == "" {
		return "", fmt.Errorf("xpath %s: empty snapshot uri", xpath)
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("xpath %s: bad uri %q: %w", xpath, raw, err)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref.String(), nil
	}
	return baseURL.ResolveReference(ref).String(), nil
}
