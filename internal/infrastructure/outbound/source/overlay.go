package source

import (
	"bytes"
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"github.com/sophialabs/coopwatch/internal/domain/frame"
)

const captionBand = 18

// Annotate draws text on a band along the bottom edge of img and re-encodes
// it in its original format. Images that cannot be decoded are returned
// unchanged together with the decode error.
func Annotate(img frame.Image, text string, quality int) (frame.Image, error) {
	if text == "" {
		return img, nil
	}
	m, format, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return img, fmt.Errorf("decode frame for caption: %w", err)
	}

	dc := gg.NewContextForImage(m)
	w, h := float64(dc.Width()), float64(dc.Height())
	dc.SetRGBA(0, 0, 0, 0.55)
	dc.DrawRectangle(0, h-captionBand, w, captionBand)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	dc.DrawStringAnchored(text, 4, h-captionBand/2, 0, 0.5)

	var data []byte
	contentType := img.ContentType
	if format == "png" {
		data, err = encodePNG(dc.Image())
		contentType = frame.ContentTypePNG
	} else {
		data, err = encodeJPEG(dc.Image(), quality)
		contentType = frame.ContentTypeJPEG
	}
	if err != nil {
		return img, err
	}

	out := img
	out.Data = data
	out.ContentType = contentType
	out.Width, out.Height = dc.Width(), dc.Height()
	return out, nil
}

// CaptionOverlay adapts Annotate to ports.Annotator.
type CaptionOverlay struct{}

func (CaptionOverlay) Annotate(img frame.Image, text string, quality int) (frame.Image, error) {
	return Annotate(img, text, quality)
}
