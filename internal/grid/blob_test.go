package grid

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/scanlab/mathfind/internal/geometry"
	"github.com/scanlab/mathfind/internal/ocr"
)

func makeBlob(x1, y1, x2, y2 int) *Blob {
	box := geometry.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
	return NewBlob(box, image.NewGray(image.Rect(0, 0, box.Width(), box.Height())))
}

// makeRecognizedChain builds block -> row -> word -> char and attaches the
// char to the blob.
func makeRecognizedChain(b *Blob, certainty float64) (*ocr.Block, *ocr.Row, *ocr.Word, *ocr.Char) {
	block := ocr.NewBlock()
	row := ocr.NewRow(block, true)
	word := ocr.NewWord(row, "x", &ocr.WordChoice{Certainty: certainty}, true)
	char := ocr.NewChar(word, "x", b.BoundingBox(), &ocr.ChoiceInfo{Certainty: certainty})
	b.SetCharData(char)
	return block, row, word, char
}

func TestBlob_BrokenChainResolvesToNil(t *testing.T) {
	b := makeBlob(0, 0, 10, 10)

	// No char result at all.
	if b.ParentChar() != nil || b.ParentWord() != nil || b.ParentRow() != nil || b.ParentBlock() != nil {
		t.Error("blob without recognition should have a fully nil upward chain")
	}

	// Char with no word: everything above resolves to nil too.
	char := ocr.NewChar(nil, "x", b.BoundingBox(), nil)
	b.SetCharData(char)
	if b.ParentChar() == nil {
		t.Fatal("char should be attached")
	}
	if b.ParentWord() != nil || b.ParentRow() != nil || b.ParentBlock() != nil {
		t.Error("chain above a parentless char should resolve to nil")
	}

	// Word with no row.
	word := ocr.NewWord(nil, "x", nil, true)
	b.SetCharData(ocr.NewChar(word, "x", b.BoundingBox(), nil))
	if b.ParentWord() == nil {
		t.Fatal("word should be reachable")
	}
	if b.ParentRow() != nil || b.ParentBlock() != nil {
		t.Error("chain above a rowless word should resolve to nil")
	}
}

func TestBlob_FullChain(t *testing.T) {
	b := makeBlob(0, 0, 10, 10)
	block, row, word, char := makeRecognizedChain(b, -2)

	if b.ParentChar() != char {
		t.Error("parent char mismatch")
	}
	if b.ParentWord() != word {
		t.Error("parent word mismatch")
	}
	if b.ParentRow() != row {
		t.Error("parent row mismatch")
	}
	if b.ParentBlock() != block {
		t.Error("parent block mismatch")
	}
}

func TestBlob_AppendDataIndexStability(t *testing.T) {
	b := makeBlob(0, 0, 10, 10)

	const n = 7
	for i := 0; i < n; i++ {
		idx := b.AppendData(i * 100)
		if idx != i {
			t.Errorf("AppendData call %d returned index %d", i, idx)
		}
	}
	if b.DataLen() != n {
		t.Fatalf("DataLen: got %d, want %d", b.DataLen(), n)
	}
	for i := 0; i < n; i++ {
		if got := b.DataAt(i).(int); got != i*100 {
			t.Errorf("DataAt(%d): got %d, want %d", i, got, i*100)
		}
	}
}

func TestBlob_ConfidenceSentinels(t *testing.T) {
	b := makeBlob(0, 0, 10, 10)

	if got := b.CharConfidence(); got != ocr.NoConfidence {
		t.Errorf("CharConfidence without result: got %v, want sentinel", got)
	}
	if got := b.WordConfidence(); got != ocr.NoConfidence {
		t.Errorf("WordConfidence without result: got %v, want sentinel", got)
	}
	if got := b.WordAverageConfidence(); got != ocr.NoConfidence {
		t.Errorf("WordAverageConfidence without word: got %v, want sentinel", got)
	}
	if got := b.RowAverageWordConfidence(); got != ocr.NoConfidence {
		t.Errorf("RowAverageWordConfidence without row: got %v, want sentinel", got)
	}

	makeRecognizedChain(b, -3)
	if got := b.CharConfidence(); got != -3 {
		t.Errorf("CharConfidence: got %v, want -3", got)
	}
	if got := b.WordConfidence(); got != -3 {
		t.Errorf("WordConfidence: got %v, want -3", got)
	}
}

// A word whose children all lack choice information divides by zero; the
// raw NaN is part of the current contract.
func TestBlob_WordAverageConfidence_NoScoredChildrenIsNaN(t *testing.T) {
	b := makeBlob(0, 0, 10, 10)
	word := ocr.NewWord(nil, "??", nil, true)
	b.SetCharData(ocr.NewChar(word, "?", b.BoundingBox(), nil))
	ocr.NewChar(word, "?", b.BoundingBox(), nil)

	if got := b.WordAverageConfidence(); !math.IsNaN(got) {
		t.Errorf("expected NaN for zero scored children, got %v", got)
	}
}

func TestBlob_RowAverageWordConfidenceMemoized(t *testing.T) {
	b := makeBlob(0, 0, 10, 10)
	_, row, _, _ := makeRecognizedChain(b, -2)
	ocr.NewWord(row, "y", &ocr.WordChoice{Certainty: -4}, true)
	ocr.NewWord(row, "z", nil, false) // no best choice, excluded from average

	want := (-2.0 + -4.0) / 2
	if got := b.RowAverageWordConfidence(); got != want {
		t.Fatalf("RowAverageWordConfidence: got %v, want %v", got, want)
	}

	// Adding another word after memoization must not change the result.
	ocr.NewWord(row, "w", &ocr.WordChoice{Certainty: -10}, true)
	if got := b.RowAverageWordConfidence(); got != want {
		t.Errorf("memoized average changed: got %v, want %v", got, want)
	}
}

func TestBlob_LeftmostRightmostInWord(t *testing.T) {
	left := makeBlob(0, 0, 10, 10)
	mid := makeBlob(10, 0, 20, 10)
	right := makeBlob(20, 0, 30, 10)

	row := ocr.NewRow(ocr.NewBlock(), true)
	word := ocr.NewWord(row, "abc", &ocr.WordChoice{Certainty: -1}, true)
	for _, b := range []*Blob{left, mid, right} {
		b.SetCharData(ocr.NewChar(word, "a", b.BoundingBox(), &ocr.ChoiceInfo{Certainty: -1}))
	}

	if !left.LeftmostInWord() || left.RightmostInWord() {
		t.Error("first char should be leftmost only")
	}
	if mid.LeftmostInWord() || mid.RightmostInWord() {
		t.Error("middle char should be neither")
	}
	if right.LeftmostInWord() || !right.RightmostInWord() {
		t.Error("last char should be rightmost only")
	}

	// Blobs outside a recognized word are never edge characters.
	loose := makeBlob(40, 0, 50, 10)
	if loose.LeftmostInWord() || loose.RightmostInWord() {
		t.Error("blob without a recognized word should report false")
	}

	invalidWord := ocr.NewWord(row, "##", &ocr.WordChoice{Certainty: -1}, false)
	loose.SetCharData(ocr.NewChar(invalidWord, "#", loose.BoundingBox(), nil))
	if loose.LeftmostInWord() || loose.RightmostInWord() {
		t.Error("blob in an unrecognized word should report false")
	}
}

func TestBlob_MergeGroupExactlyOnceRelease(t *testing.T) {
	const groupSize = 4

	// Every release permutation must free the descriptor exactly once.
	perms := permutations(groupSize)
	for _, perm := range perms {
		blobs := make([]*Blob, groupSize)
		for i := range blobs {
			blobs[i] = makeBlob(i*10, 0, i*10+10, 10)
		}

		desc := &MergeGroup{SegmentID: 7, Box: geometry.Rect{X2: 40, Y2: 10}}
		slot := blobs[0].NewMergeGroup(desc)
		releases := 0
		slot.OnRelease = func() { releases++ }
		for _, b := range blobs[1:] {
			b.JoinMergeGroup(slot)
		}

		for _, b := range blobs {
			if b.MergeData() != desc {
				t.Fatal("all members should see the shared descriptor")
			}
		}

		for _, i := range perm {
			blobs[i].Release()
		}

		if releases != 1 {
			t.Errorf("permutation %v: descriptor released %d times, want exactly 1", perm, releases)
		}
		for _, b := range blobs {
			if b.MergeData() != nil {
				t.Errorf("permutation %v: descriptor still visible after release", perm)
			}
		}
	}
}

func TestBlob_ReleaseIdempotent(t *testing.T) {
	b := makeBlob(0, 0, 10, 10)
	slot := b.NewMergeGroup(&MergeGroup{SegmentID: 1})
	releases := 0
	slot.OnRelease = func() { releases++ }

	b.Release()
	b.Release()

	if releases != 1 {
		t.Errorf("double Release triggered %d descriptor releases", releases)
	}
	if b.Image() != nil {
		t.Error("raster should be freed by Release")
	}
}

func TestBlob_Flags(t *testing.T) {
	b := makeBlob(0, 0, 10, 10)

	if b.MarkedForDeletion() || b.MarkedAsSplit() || b.MathDetected() {
		t.Error("flags should start false")
	}

	b.MarkForDeletion()
	b.MarkAsSplit()
	b.SetMathDetected(true)

	if !b.MarkedForDeletion() || !b.MarkedAsSplit() || !b.MathDetected() {
		t.Error("flags should be set")
	}
}

// permutations returns all orderings of 0..n-1, shuffled sources for small n.
func permutations(n int) [][]int {
	var out [][]int
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	var generate func(k int)
	generate = func(k int) {
		if k == 1 {
			cp := make([]int, n)
			copy(cp, perm)
			out = append(out, cp)
			return
		}
		for i := 0; i < k; i++ {
			generate(k - 1)
			if k%2 == 0 {
				perm[i], perm[k-1] = perm[k-1], perm[i]
			} else {
				perm[0], perm[k-1] = perm[k-1], perm[0]
			}
		}
	}
	generate(n)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
