package grid

import (
	"testing"

	"github.com/scanlab/mathfind/internal/geometry"
	"github.com/scanlab/mathfind/internal/ocr"
)

func TestGrid_InsertSetsBackReference(t *testing.T) {
	g := NewGrid(200, 100)
	b := makeBlob(5, 5, 15, 15)

	g.Insert(b)

	if b.ParentGrid() != g {
		t.Error("Insert should set the parent grid back-reference")
	}
	if g.Len() != 1 {
		t.Errorf("Len: got %d, want 1", g.Len())
	}
}

func TestFullSearch_ReadingOrder(t *testing.T) {
	g := NewGrid(300, 100)
	// Inserted out of order on purpose.
	b3 := makeBlob(50, 40, 60, 50)
	b1 := makeBlob(80, 10, 90, 20)
	b2 := makeBlob(10, 10, 20, 20)
	for _, b := range []*Blob{b3, b1, b2} {
		g.Insert(b)
	}

	search := g.NewFullSearch()
	want := []*Blob{b2, b1, b3} // top-to-bottom, then left-to-right
	for i, wantBlob := range want {
		got := search.Next()
		if got != wantBlob {
			t.Fatalf("position %d: wrong blob (box %+v)", i, got.BoundingBox())
		}
	}
	if search.Next() != nil {
		t.Error("exhausted search should return nil")
	}

	// Restartable: Start rewinds to the beginning.
	search.Start()
	if got := search.Next(); got != b2 {
		t.Error("restarted search should begin at the first blob")
	}
}

func TestSideSearch_WalksRightward(t *testing.T) {
	g := NewGrid(500, 100)
	var row []*Blob
	for i := 0; i < 5; i++ {
		b := makeBlob(i*20, 10, i*20+10, 30)
		row = append(row, b)
		g.Insert(b)
	}
	// A blob outside the vertical band must not appear.
	outside := makeBlob(50, 60, 60, 80)
	g.Insert(outside)

	start := row[0]
	search := g.NewSideSearch(start.BoundingBox().X2, start.BoundingBox().Y1, start.BoundingBox().Y2)

	for i := 1; i < 5; i++ {
		got := search.Next(false)
		if got != row[i] {
			t.Fatalf("step %d: wrong neighbor (box %+v)", i, got.BoundingBox())
		}
	}
	if search.Next(false) != nil {
		t.Error("exhausted side search should return nil")
	}
}

func TestSideSearch_WalksLeftward(t *testing.T) {
	g := NewGrid(500, 100)
	var row []*Blob
	for i := 0; i < 4; i++ {
		b := makeBlob(i*20, 10, i*20+10, 30)
		row = append(row, b)
		g.Insert(b)
	}

	// Start at the left edge of the last blob, walking toward smaller X.
	start := row[3]
	search := g.NewSideSearch(start.BoundingBox().X1, start.BoundingBox().Y1, start.BoundingBox().Y2)

	for i := 2; i >= 0; i-- {
		got := search.Next(true)
		if got != row[i] {
			t.Fatalf("expected blob %d, got box %+v", i, got.BoundingBox())
		}
	}
	if search.Next(true) != nil {
		t.Error("exhausted side search should return nil")
	}
}

func TestSideSearch_CountsSteps(t *testing.T) {
	g := NewGrid(500, 100)
	for i := 0; i < 3; i++ {
		g.Insert(makeBlob(i*20+20, 10, i*20+30, 30))
	}

	search := g.NewSideSearch(0, 10, 30)
	for search.Next(false) != nil {
	}

	if g.SideSteps() != 3 {
		t.Errorf("SideSteps: got %d, want 3", g.SideSteps())
	}
	g.ResetSideSteps()
	if g.SideSteps() != 0 {
		t.Errorf("SideSteps after reset: got %d, want 0", g.SideSteps())
	}
}

func TestGrid_EachIn(t *testing.T) {
	g := NewGrid(200, 200)
	inner := makeBlob(50, 50, 60, 60)
	outer := makeBlob(150, 150, 160, 160)
	g.Insert(inner)
	g.Insert(outer)

	var hits []*Blob
	g.EachIn(geometry.Rect{X1: 40, Y1: 40, X2: 70, Y2: 70}, func(b *Blob) bool {
		hits = append(hits, b)
		return true
	})

	if len(hits) != 1 || hits[0] != inner {
		t.Errorf("EachIn should find exactly the inner blob, got %d hits", len(hits))
	}
}

func TestGrid_Sweep(t *testing.T) {
	g := NewGrid(200, 100)
	keep := makeBlob(0, 0, 10, 10)
	drop := makeBlob(20, 0, 30, 10)
	g.Insert(keep)
	g.Insert(drop)

	drop.MarkForDeletion()
	if removed := g.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if g.Len() != 1 {
		t.Errorf("Len after sweep: got %d, want 1", g.Len())
	}
	if drop.Image() != nil {
		t.Error("swept blob should have been released")
	}

	// The swept blob no longer appears in spatial queries.
	found := false
	g.EachIn(geometry.Rect{X1: 15, Y1: 0, X2: 35, Y2: 10}, func(b *Blob) bool {
		found = true
		return true
	})
	if found {
		t.Error("swept blob still present in the spatial index")
	}
}

func TestGrid_AttachRecognition(t *testing.T) {
	g := NewGrid(200, 100)
	// Two fragments of one broken character share its box.
	frag1 := makeBlob(10, 10, 20, 30)
	frag2 := makeBlob(22, 10, 32, 30)
	other := makeBlob(100, 10, 110, 30)
	for _, b := range []*Blob{frag1, frag2, other} {
		g.Insert(b)
	}

	word := ocr.NewWord(nil, "=", nil, false)
	char := ocr.NewChar(word, "=", geometry.Rect{X1: 10, Y1: 10, X2: 32, Y2: 30}, &ocr.ChoiceInfo{Certainty: -2})
	page := &ocr.PageResult{Chars: []*ocr.Char{char}}

	g.AttachRecognition(page)

	if frag1.ParentChar() != char || frag2.ParentChar() != char {
		t.Error("both fragments should share the merged character result")
	}
	if other.ParentChar() != nil {
		t.Error("distant blob should stay unattached")
	}
}
