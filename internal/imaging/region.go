package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/scanlab/mathfind/internal/geometry"
)

// RegionResult contains one cropped page region, PNG-encoded for transport.
type RegionResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// ExtractRegion crops a rectangular region from the page image, optionally
// scaling it, and encodes the result as base64 PNG. Useful for inspecting
// individual blobs or detected expressions.
func ExtractRegion(img image.Image, r geometry.Rect, scale float64) (*RegionResult, error) {
	bounds := img.Bounds()
	if r.X1 < 0 || r.Y1 < 0 || bounds.Min.X+r.X2 > bounds.Max.X || bounds.Min.Y+r.Y2 > bounds.Max.Y {
		return nil, fmt.Errorf("region (%d,%d)-(%d,%d) outside page bounds %dx%d",
			r.X1, r.Y1, r.X2, r.Y2, bounds.Dx(), bounds.Dy())
	}
	if r.Empty() {
		return nil, fmt.Errorf("empty region (%d,%d)-(%d,%d)", r.X1, r.Y1, r.X2, r.Y2)
	}

	cropped := imaging.Crop(img, image.Rect(
		bounds.Min.X+r.X1, bounds.Min.Y+r.Y1,
		bounds.Min.X+r.X2, bounds.Min.Y+r.Y2,
	))

	if scale > 0 && scale != 1.0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, cropped); err != nil {
		return nil, fmt.Errorf("failed to encode region: %w", err)
	}

	return &RegionResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
