// Package geometry provides the pixel-space rectangle type shared by the
// blob grid, the detection algorithms, and the training pipeline.
//
// # Coordinate System
//
// All rectangles use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//   - Inclusive top-left corner, exclusive bottom-right corner
//
// Ground-truth files describe rectangles in a bottom-up coordinate space
// (origin at the bottom-left of the page). FlipY converts between the two
// given the page height.
package geometry

// Rect is an axis-aligned rectangle in pixel coordinates.
type Rect struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() int { return r.X2 - r.X1 }

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() int { return r.Y2 - r.Y1 }

// Empty reports whether the rectangle encloses no area.
func (r Rect) Empty() bool { return r.X1 >= r.X2 || r.Y1 >= r.Y2 }

// Area returns the enclosed area in pixels, zero for empty rectangles.
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Intersect returns the intersection of r and other. The result is the
// zero Rect when the two do not overlap.
func (r Rect) Intersect(other Rect) Rect {
	result := Rect{
		X1: maxInt(r.X1, other.X1),
		Y1: maxInt(r.Y1, other.Y1),
		X2: minInt(r.X2, other.X2),
		Y2: minInt(r.Y2, other.Y2),
	}
	if result.Empty() {
		return Rect{}
	}
	return result
}

// Overlaps reports whether r and other share a non-zero-area intersection.
// Rectangles that merely touch at an edge or corner do not overlap.
func (r Rect) Overlaps(other Rect) bool {
	return r.X1 < other.X2 && r.X2 > other.X1 && r.Y1 < other.Y2 && r.Y2 > other.Y1
}

// Union returns the smallest rectangle containing both r and other.
func (r Rect) Union(other Rect) Rect {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	return Rect{
		X1: minInt(r.X1, other.X1),
		Y1: minInt(r.Y1, other.Y1),
		X2: maxInt(r.X2, other.X2),
		Y2: maxInt(r.Y2, other.Y2),
	}
}

// Contains reports whether other lies completely inside r. A rectangle
// contains itself.
func (r Rect) Contains(other Rect) bool {
	return other.X1 >= r.X1 && other.Y1 >= r.Y1 && other.X2 <= r.X2 && other.Y2 <= r.Y2
}

// ContainsStrict reports whether other lies completely inside r without
// touching any of r's edges.
func (r Rect) ContainsStrict(other Rect) bool {
	return other.X1 > r.X1 && other.Y1 > r.Y1 && other.X2 < r.X2 && other.Y2 < r.Y2
}

// FlipY converts the rectangle between the top-down image coordinate space
// and the bottom-up ground-truth coordinate space for a page of the given
// height. The conversion is its own inverse.
func (r Rect) FlipY(pageHeight int) Rect {
	return Rect{
		X1: r.X1,
		Y1: pageHeight - r.Y2,
		X2: r.X2,
		Y2: pageHeight - r.Y1,
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
