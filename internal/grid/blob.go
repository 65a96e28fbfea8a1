package grid

import (
	"image"

	"github.com/scanlab/mathfind/internal/geometry"
	"github.com/scanlab/mathfind/internal/ocr"
)

// Blob is one connected image fragment on a page, together with everything
// the detection pipeline learns about it.
//
// The bounding box is fixed at construction and must be non-degenerate for
// the blob's whole lifetime. The raster image is exclusively owned by the
// blob and freed by Release.
type Blob struct {
	box   geometry.Rect
	image image.Image
	grid  *Grid

	// char is a non-owning reference to the character-level recognition
	// result. It may be shared with neighboring blobs when the engine
	// merged several fragments into one character.
	char *ocr.Char

	// data holds one opaque entry per feature extractor, in append order.
	// An extractor that appends data for one blob must append for every
	// blob in the same run or the stable indices drift apart; that is a
	// caller contract, not enforced here.
	data     []any
	features []float64

	merge *MergeSlot

	markedForDeletion bool
	markedAsSplit     bool
	mathDetected      bool

	badRegion      bool
	badRegionKnown bool

	released bool
}

// NewBlob creates a blob for the given bounding box and raster image. The
// box must be non-degenerate.
func NewBlob(box geometry.Rect, img image.Image) *Blob {
	return &Blob{box: box, image: img}
}

// BoundingBox returns the blob's bounding box in page coordinates.
func (b *Blob) BoundingBox() geometry.Rect { return b.box }

// Image returns the blob's raster image, or nil after Release.
func (b *Blob) Image() image.Image { return b.image }

// ParentGrid returns the grid this blob was inserted into, or nil.
func (b *Blob) ParentGrid() *Grid { return b.grid }

// SetCharData attaches the character-level recognition result. Several
// neighboring blobs may share the same result when the engine merges
// fragments into one character (broken glyphs, symbols like '=').
func (b *Blob) SetCharData(char *ocr.Char) { b.char = char }

// ParentChar returns the attached character-level recognition result, or
// nil when the engine produced none for this blob.
func (b *Blob) ParentChar() *ocr.Char { return b.char }

// ParentWord returns the word this blob's character belongs to. Returns nil
// if any link in the chain is absent.
func (b *Blob) ParentWord() *ocr.Word {
	if b.char == nil {
		return nil
	}
	return b.char.ParentWord()
}

// ParentRow returns the row this blob's word belongs to. Returns nil if any
// link in the chain is absent.
func (b *Blob) ParentRow() *ocr.Row {
	word := b.ParentWord()
	if word == nil {
		return nil
	}
	return word.ParentRow()
}

// ParentBlock returns the block this blob's row belongs to. Returns nil if
// any link in the chain is absent.
func (b *Blob) ParentBlock() *ocr.Block {
	row := b.ParentRow()
	if row == nil {
		return nil
	}
	return row.ParentBlock()
}

// AppendData appends one opaque per-extractor data entry and returns its
// stable index. Indices increase monotonically in append order; the returned
// index is the key for retrieving the same entry later via DataAt.
func (b *Blob) AppendData(entry any) int {
	b.data = append(b.data, entry)
	return len(b.data) - 1
}

// DataAt returns the opaque data entry stored at the given index. The
// extractor that appended the entry knows the index and the concrete type.
func (b *Blob) DataAt(i int) any { return b.data[i] }

// DataLen returns the number of opaque data entries appended so far.
func (b *Blob) DataLen() int { return len(b.data) }

// AppendFeatures appends extracted numeric features. Once extraction is
// finished the slice holds one or more features from every extractor that
// ran, in extractor order.
func (b *Blob) AppendFeatures(features ...float64) {
	b.features = append(b.features, features...)
}

// Features returns the blob's extracted feature vector.
func (b *Blob) Features() []float64 { return b.features }

// CharConfidence returns the engine's confidence in the character result
// this blob is part of, or ocr.NoConfidence when no result exists.
func (b *Blob) CharConfidence() float64 {
	if b.char == nil {
		return ocr.NoConfidence
	}
	if b.char.Choice() == nil {
		return ocr.NoConfidence
	}
	return b.char.Choice().Certainty
}

// WordConfidence returns the engine's confidence in the word result this
// blob is part of, or ocr.NoConfidence when no result exists. The engine
// defines this as the worst certainty among the word's characters.
func (b *Blob) WordConfidence() float64 {
	word := b.ParentWord()
	if word == nil {
		return ocr.NoConfidence
	}
	if word.Best() == nil {
		return ocr.NoConfidence
	}
	return word.Best().Certainty
}

// WordAverageConfidence averages certainty over the parent word's child
// characters that carry choice information.
//
// When zero children carry choice information the division yields NaN and
// callers see the raw result.
// TODO: decide whether a word with zero scored children should report
// ocr.NoConfidence instead of NaN.
func (b *Blob) WordAverageConfidence() float64 {
	word := b.ParentWord()
	if word == nil {
		return ocr.NoConfidence
	}
	var sum, total float64
	for _, char := range word.Chars {
		if char.Choice() == nil {
			continue
		}
		sum += char.Choice().Certainty
		total++
	}
	return sum / total
}

// RowAverageWordConfidence returns the average best-choice certainty over
// all words in the blob's row, computing it lazily and memoizing it on the
// row. Returns ocr.NoConfidence when the blob has no parent row.
func (b *Blob) RowAverageWordConfidence() float64 {
	row := b.ParentRow()
	if row == nil {
		return ocr.NoConfidence
	}
	if avg, known := row.AvgWordConfidence(); known {
		return avg
	}
	var sum, total float64
	for _, word := range row.Words {
		if word.Best() == nil {
			continue
		}
		sum += word.Best().Certainty
		total++
	}
	avg := sum / total
	row.SetAvgWordConfidence(avg)
	return avg
}

// InRecognizedWord reports whether the blob belongs to a word the engine
// recognized against its dictionary.
func (b *Blob) InRecognizedWord() bool {
	word := b.ParentWord()
	if word == nil {
		return false
	}
	return word.Valid()
}

// MatchesMathWord reports whether the blob's word is a recognized
// mathematical function or operator name.
func (b *Blob) MatchesMathWord() bool {
	word := b.ParentWord()
	if word == nil {
		return false
	}
	return word.MatchesMathWord()
}

// MatchesStopword reports whether the blob's word is a recognized prose
// stopword.
func (b *Blob) MatchesStopword() bool {
	word := b.ParentWord()
	if word == nil {
		return false
	}
	return word.MatchesStopword()
}

// InNormalRow reports whether the blob belongs to a row the layout analysis
// considered ordinary validated text.
func (b *Blob) InNormalRow() bool {
	row := b.ParentRow()
	if row == nil {
		return false
	}
	return row.ConsideredNormal()
}

// LeftmostInWord reports whether this blob's character is the first in its
// recognized word, by identity. False when the blob does not belong to a
// recognized word.
func (b *Blob) LeftmostInWord() bool {
	if !b.InRecognizedWord() {
		return false
	}
	chars := b.ParentWord().Chars
	return len(chars) > 0 && chars[0] == b.char
}

// RightmostInWord reports whether this blob's character is the last in its
// recognized word, by identity. False when the blob does not belong to a
// recognized word.
func (b *Blob) RightmostInWord() bool {
	if !b.InRecognizedWord() {
		return false
	}
	chars := b.ParentWord().Chars
	return len(chars) > 0 && chars[len(chars)-1] == b.char
}

// NewMergeGroup allocates a fresh shared slot around the given descriptor
// and attaches it to this blob. Other blobs in the same merged segment join
// through JoinMergeGroup with the returned slot.
func (b *Blob) NewMergeGroup(desc *MergeGroup) *MergeSlot {
	b.merge = newMergeSlot(desc)
	return b.merge
}

// JoinMergeGroup adopts a caller-supplied shared slot, making this blob a
// member of an existing merge group.
func (b *Blob) JoinMergeGroup(slot *MergeSlot) { b.merge = slot }

// MergeData returns the shared merge descriptor, or nil when the blob is
// not part of a merge group or the descriptor has already been released.
func (b *Blob) MergeData() *MergeGroup {
	if b.merge == nil {
		return nil
	}
	return b.merge.Get()
}

// MergeSlot returns the shared slot itself for handing to JoinMergeGroup on
// another blob, or nil when the blob is not part of a merge group.
func (b *Blob) MergeSlot() *MergeSlot { return b.merge }

// Release frees the blob's raster image and, if the blob belongs to a merge
// group, releases the shared descriptor unless another group member already
// did. Release is idempotent.
func (b *Blob) Release() {
	if b.released {
		return
	}
	b.released = true
	b.image = nil
	if b.merge != nil {
		b.merge.release()
	}
}

// MarkForDeletion flags the blob for removal during the next grid sweep.
func (b *Blob) MarkForDeletion() { b.markedForDeletion = true }

// MarkedForDeletion reports whether the blob is flagged for removal.
func (b *Blob) MarkedForDeletion() bool { return b.markedForDeletion }

// MarkAsSplit flags the blob as one the engine split off from a larger
// fragment during recognition.
func (b *Blob) MarkAsSplit() { b.markedAsSplit = true }

// MarkedAsSplit reports whether the blob was flagged as an engine split.
func (b *Blob) MarkedAsSplit() bool { return b.markedAsSplit }

// SetMathDetected records the math-expression detection verdict. Set by the
// detector once classification has run.
func (b *Blob) SetMathDetected(detected bool) { b.mathDetected = detected }

// MathDetected returns the math-expression detection verdict. Always false
// before detection has been carried out.
func (b *Blob) MathDetected() bool { return b.mathDetected }

// BadRegion returns the memoized bad-region verdict and whether it has been
// computed. Once memoized the verdict is never recomputed.
func (b *Blob) BadRegion() (bad, known bool) { return b.badRegion, b.badRegionKnown }

// SetBadRegion memoizes the bad-region verdict.
func (b *Blob) SetBadRegion(bad bool) {
	b.badRegion = bad
	b.badRegionKnown = true
}
