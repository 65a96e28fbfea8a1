package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/scanlab/mathfind/internal/geometry"
	"github.com/scanlab/mathfind/internal/grid"
)

// OverlayResult contains the page image with detection verdicts drawn on it.
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	TotalBlobs  int    `json:"total_blobs"`
	MathBlobs   int    `json:"math_blobs"`
}

// Verdict colors, picked in HSV so the three categories stay visually
// distinct on both light and dark pages.
var (
	mathColor      = hsvColor(0, 0.85, 0.90)   // red
	badRegionColor = hsvColor(45, 0.90, 0.95)  // amber
	plainColor     = hsvColor(210, 0.55, 0.80) // muted blue
)

func hsvColor(h, s, v float64) color.RGBA {
	r, g, b := colorful.Hsv(h, s, v).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// RenderVerdictOverlay draws every blob's bounding box on a copy of the page
// image: red for detected math, amber for blobs inside a bad region, blue
// for everything else. The result is PNG-encoded and base64-wrapped for
// transport.
func RenderVerdictOverlay(img image.Image, g *grid.Grid) (*OverlayResult, error) {
	bounds := img.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, img, bounds.Min, draw.Src)

	total, math := 0, 0
	cursor := g.NewFullSearch()
	for b := cursor.Next(); b != nil; b = cursor.Next() {
		total++
		c := plainColor
		if bad, known := b.BadRegion(); known && bad {
			c = badRegionColor
		}
		if b.MathDetected() {
			c = mathColor
			math++
		}
		drawRect(out, b.BoundingBox(), c)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode overlay: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
		TotalBlobs:  total,
		MathBlobs:   math,
	}, nil
}

// drawRect outlines the rectangle on the image, clamped to its bounds. The
// rectangle is in page coordinates, so it is shifted by the image origin.
func drawRect(img *image.RGBA, r geometry.Rect, c color.RGBA) {
	bounds := img.Bounds()
	x1 := bounds.Min.X + r.X1
	y1 := bounds.Min.Y + r.Y1
	x2 := bounds.Min.X + r.X2 - 1
	y2 := bounds.Min.Y + r.Y2 - 1

	set := func(x, y int) {
		if x >= bounds.Min.X && x < bounds.Max.X && y >= bounds.Min.Y && y < bounds.Max.Y {
			img.SetRGBA(x, y, c)
		}
	}
	for x := x1; x <= x2; x++ {
		set(x, y1)
		set(x, y2)
	}
	for y := y1; y <= y2; y++ {
		set(x1, y)
		set(x2, y)
	}
}
