package source

import (
	"fmt"
	"net/http"

	"github.com/sophialabs/coopwatch/internal/domain/camera"
	"github.com/sophialabs/coopwatch/internal/infrastructure/ports"
)

// Factory builds frame sources from camera definitions.
type Factory struct {
	client *http.Client
	clock  ports.Clock
}

// NewFactory creates a factory sharing one HTTP client across sources.
func NewFactory(client *http.Client, clk ports.Clock) *Factory {
	if client == nil {
		client = &http.Client{}
	}
	return &Factory{client: client, clock: clk}
}

// New returns the FrameSource for src.
func (f *Factory) New(src camera.Source) (camera.FrameSource, error) {
	switch src.Kind {
	case camera.SourceSynthetic:
		return NewSynthetic(src.Width, src.Height, src.Quality, f.clock), nil
	case camera.SourceFile:
		if src.Dir == "" {
			return nil, fmt.Errorf("file source requires dir")
		}
		return NewDirectory(src.Dir), nil
	case camera.SourceHTTP:
		if src.URL == "" {
			return nil, fmt.Errorf("http source requires url")
		}
		return NewHTTPSnapshot(src.URL, f.client, src.Timeout), nil
	case camera.SourceJSON:
		if src.URL == "" {
			return nil, fmt.Errorf("json source requires url")
		}
		return NewJSONEnvelope(src.URL, src.Path, f.client, src.Timeout), nil
	case camera.SourceXML:
		if src.URL == "" {
			return nil, fmt.Errorf("xml source requires url")
		}
		return NewXMLDevice(src.URL, src.XPath, f.client, src.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}
