package source

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

// describe fills content type and dimensions for encoded image bytes.
// Unknown formats keep the sniffed content type and zero dimensions.
func describe(data []byte, contentType string) frame.Image {
	img := frame.Image{Data: data, ContentType: contentType}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err == nil {
		img.Width, img.Height = cfg.Width, cfg.Height
		switch format {
		case "jpeg":
			img.ContentType = frame.ContentTypeJPEG
		case "png":
			img.ContentType = frame.ContentTypePNG
		}
	}
	if img.ContentType == "" {
		img.ContentType = http.DetectContentType(data)
	}
	return img
}

func encodeJPEG(m image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, m, &jpeg.Options{Quality: clampQuality(quality)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func encodePNG(m image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, m); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func clampQuality(q int) int {
	switch {
	case q <= 0:
		return 60
	case q > 100:
		return 100
	default:
		return q
	}
}
