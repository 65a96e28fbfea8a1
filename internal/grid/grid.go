package grid

import (
	"sort"

	"github.com/tidwall/rtree"

	"github.com/scanlab/mathfind/internal/geometry"
	"github.com/scanlab/mathfind/internal/ocr"
)

// Grid is the spatial index over all blobs on one page.
type Grid struct {
	tr     rtree.RTreeG[*Blob]
	blobs  []*Blob
	bounds geometry.Rect

	// sideSteps counts blobs yielded by side searches, so tests can verify
	// that memoized classification performs no traversal.
	sideSteps int
}

// NewGrid creates an empty grid for a page of the given dimensions.
func NewGrid(pageWidth, pageHeight int) *Grid {
	return &Grid{bounds: geometry.Rect{X2: pageWidth, Y2: pageHeight}}
}

// Bounds returns the page bounds the grid covers.
func (g *Grid) Bounds() geometry.Rect { return g.bounds }

// PageHeight returns the page height in pixels, used for converting blob
// boxes into the ground-truth coordinate space.
func (g *Grid) PageHeight() int { return g.bounds.Height() }

// Len returns the number of blobs in the grid.
func (g *Grid) Len() int { return len(g.blobs) }

// Insert adds a blob to the grid and sets its parent back-reference.
func (g *Grid) Insert(b *Blob) {
	b.grid = g
	g.blobs = append(g.blobs, b)
	min, max := rtreeBox(b.box)
	g.tr.Insert(min, max, b)
}

// EachIn calls fn for every blob whose box intersects rect, in index order.
// Return false from fn to stop early.
func (g *Grid) EachIn(rect geometry.Rect, fn func(*Blob) bool) {
	min, max := rtreeBox(rect)
	g.tr.Search(min, max, func(_, _ [2]float64, b *Blob) bool {
		return fn(b)
	})
}

// Sweep removes every blob marked for deletion, releasing each one, and
// returns the number removed.
func (g *Grid) Sweep() int {
	kept := g.blobs[:0]
	removed := 0
	for _, b := range g.blobs {
		if !b.MarkedForDeletion() {
			kept = append(kept, b)
			continue
		}
		min, max := rtreeBox(b.box)
		g.tr.Delete(min, max, b)
		b.Release()
		removed++
	}
	g.blobs = kept
	return removed
}

// AttachRecognition attaches character-level recognition results to the
// blobs they cover. A character whose box overlaps several blobs is shared
// by all of them.
func (g *Grid) AttachRecognition(page *ocr.PageResult) {
	for _, char := range page.Chars {
		g.EachIn(char.Box, func(b *Blob) bool {
			if b.box.Overlaps(char.Box) {
				b.SetCharData(char)
			}
			return true
		})
	}
}

// SideSteps returns the number of blobs yielded by side searches since the
// last ResetSideSteps.
func (g *Grid) SideSteps() int { return g.sideSteps }

// ResetSideSteps resets the side-search step counter.
func (g *Grid) ResetSideSteps() { g.sideSteps = 0 }

// FullSearch is a restartable cursor over every blob in the grid in reading
// order: top-to-bottom, then left-to-right.
type FullSearch struct {
	g     *Grid
	order []*Blob
	next  int
}

// NewFullSearch creates a started full-traversal cursor.
func (g *Grid) NewFullSearch() *FullSearch {
	s := &FullSearch{g: g}
	s.Start()
	return s
}

// Start (re)snapshots the grid contents and rewinds the cursor.
func (s *FullSearch) Start() {
	s.order = append(s.order[:0], s.g.blobs...)
	sort.SliceStable(s.order, func(i, j int) bool {
		a, b := s.order[i].box, s.order[j].box
		if a.Y1 != b.Y1 {
			return a.Y1 < b.Y1
		}
		return a.X1 < b.X1
	})
	s.next = 0
}

// Next returns the next blob in reading order, or nil when the traversal is
// exhausted.
func (s *FullSearch) Next() *Blob {
	if s.next >= len(s.order) {
		return nil
	}
	b := s.order[s.next]
	s.next++
	return b
}

// SideSearch is a restartable cursor over blobs spatially adjacent to a
// start position, walked horizontally in one direction.
//
// The search band is the vertical span given at Start; a blob qualifies
// when its own vertical span overlaps the band. The walk direction is fixed
// by the first Next call after a Start.
type SideSearch struct {
	g                *Grid
	x, yTop, yBottom int

	started     bool
	rightToLeft bool
	queue       []*Blob
	next        int
}

// NewSideSearch creates a side-search cursor starting at horizontal
// position x with the vertical band [yTop, yBottom).
func (g *Grid) NewSideSearch(x, yTop, yBottom int) *SideSearch {
	s := &SideSearch{g: g}
	s.Start(x, yTop, yBottom)
	return s
}

// Start rewinds the cursor to a new start position.
func (s *SideSearch) Start(x, yTop, yBottom int) {
	s.x, s.yTop, s.yBottom = x, yTop, yBottom
	s.started = false
	s.queue = s.queue[:0]
	s.next = 0
}

// Next returns the next adjacent blob in the given direction, or nil when
// the neighbor sequence is exhausted. rightToLeft false walks toward larger
// X, true toward smaller X. The direction of the first call after Start is
// kept for the cursor's lifetime.
func (s *SideSearch) Next(rightToLeft bool) *Blob {
	if !s.started {
		s.rightToLeft = rightToLeft
		s.collect()
		s.started = true
	}
	if s.next >= len(s.queue) {
		return nil
	}
	b := s.queue[s.next]
	s.next++
	s.g.sideSteps++
	return b
}

// collect gathers and orders the band blobs on the chosen side of x.
func (s *SideSearch) collect() {
	band := geometry.Rect{
		X1: s.g.bounds.X1, Y1: s.yTop,
		X2: s.g.bounds.X2, Y2: s.yBottom,
	}
	s.g.EachIn(band, func(b *Blob) bool {
		box := b.box
		if box.Y1 >= s.yBottom || box.Y2 <= s.yTop {
			return true
		}
		if s.rightToLeft {
			if box.X2 <= s.x {
				s.queue = append(s.queue, b)
			}
		} else {
			if box.X1 >= s.x {
				s.queue = append(s.queue, b)
			}
		}
		return true
	})
	if s.rightToLeft {
		sort.SliceStable(s.queue, func(i, j int) bool {
			a, b := s.queue[i].box, s.queue[j].box
			if a.X2 != b.X2 {
				return a.X2 > b.X2
			}
			return a.Y1 < b.Y1
		})
	} else {
		sort.SliceStable(s.queue, func(i, j int) bool {
			a, b := s.queue[i].box, s.queue[j].box
			if a.X1 != b.X1 {
				return a.X1 < b.X1
			}
			return a.Y1 < b.Y1
		})
	}
}

func rtreeBox(r geometry.Rect) (min, max [2]float64) {
	return [2]float64{float64(r.X1), float64(r.Y1)}, [2]float64{float64(r.X2), float64(r.Y2)}
}
