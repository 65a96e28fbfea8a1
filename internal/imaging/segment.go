package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"github.com/scanlab/mathfind/internal/geometry"
	"github.com/scanlab/mathfind/internal/grid"
)

// minBlobPixels filters out scanner specks: components with fewer ink
// pixels than this never become blobs.
const minBlobPixels = 3

// Binarize converts a page image to a binary raster. The threshold level is
// chosen per page with Otsu's method, so light and dark scans separate ink
// from paper without manual tuning. Ink pixels come out black (0), paper
// white (255).
func Binarize(img image.Image) *image.Gray {
	// Otsu yields the last background level; Threshold treats pixels at or
	// above its level as paper, so shift by one.
	return segment.Threshold(img, otsuLevel(img)+1)
}

// otsuLevel picks the gray level that maximizes between-class variance of
// the page's luminance histogram.
func otsuLevel(img image.Image) uint8 {
	gray := effect.Grayscale(img)
	bounds := gray.Bounds()

	var hist [256]int
	total := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, _, _, _ := gray.At(x, y).RGBA()
			hist[r>>8]++
			total++
		}
	}
	if total == 0 {
		return 128
	}

	var sum float64
	for level, count := range hist {
		sum += float64(level) * float64(count)
	}

	var sumBack, weightBack float64
	var bestLevel uint8
	var bestVariance float64
	for level := 0; level < 256; level++ {
		weightBack += float64(hist[level])
		if weightBack == 0 {
			continue
		}
		weightFore := float64(total) - weightBack
		if weightFore == 0 {
			break
		}
		sumBack += float64(level) * float64(hist[level])

		meanBack := sumBack / weightBack
		meanFore := (sum - sumBack) / weightFore
		diff := meanBack - meanFore
		variance := weightBack * weightFore * diff * diff
		if variance > bestVariance {
			bestVariance = variance
			bestLevel = uint8(level)
		}
	}
	return bestLevel
}

// SegmentPage binarizes the page and builds a spatial grid containing one
// blob per 4-connected ink component. Each blob carries its own cropped
// raster, so it survives independently of the page image.
func SegmentPage(img image.Image) *grid.Grid {
	bin := Binarize(img)
	bounds := bin.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	g := grid.NewGrid(width, height)

	visited := make([]bool, width*height)
	isInk := func(x, y int) bool {
		return bin.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y == 0
	}

	var stack []image.Point
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[y*width+x] || !isInk(x, y) {
				continue
			}

			// Flood-fill one component, tracking its bounding box.
			box := geometry.Rect{X1: x, Y1: y, X2: x + 1, Y2: y + 1}
			pixels := 0
			stack = append(stack[:0], image.Point{X: x, Y: y})
			visited[y*width+x] = true
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				pixels++

				if p.X < box.X1 {
					box.X1 = p.X
				}
				if p.Y < box.Y1 {
					box.Y1 = p.Y
				}
				if p.X+1 > box.X2 {
					box.X2 = p.X + 1
				}
				if p.Y+1 > box.Y2 {
					box.Y2 = p.Y + 1
				}

				for _, n := range [4]image.Point{
					{X: p.X - 1, Y: p.Y},
					{X: p.X + 1, Y: p.Y},
					{X: p.X, Y: p.Y - 1},
					{X: p.X, Y: p.Y + 1},
				} {
					if n.X < 0 || n.X >= width || n.Y < 0 || n.Y >= height {
						continue
					}
					if visited[n.Y*width+n.X] || !isInk(n.X, n.Y) {
						continue
					}
					visited[n.Y*width+n.X] = true
					stack = append(stack, n)
				}
			}

			if pixels < minBlobPixels {
				continue
			}

			raster := imaging.Crop(img, image.Rect(
				bounds.Min.X+box.X1, bounds.Min.Y+box.Y1,
				bounds.Min.X+box.X2, bounds.Min.Y+box.Y2,
			))
			g.Insert(grid.NewBlob(box, raster))
		}
	}

	return g
}
