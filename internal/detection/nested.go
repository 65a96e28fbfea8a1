package detection

import (
	"github.com/scanlab/mathfind/internal/grid"
)

// NestedCountExtractor counts the blobs completely nested inside each
// blob's bounding box. Fraction bars, radicals, and large delimiters
// enclose other symbols far more often than ordinary glyphs do, which makes
// the count a strong math indicator.
//
// The raw count is stored as per-blob data under a stable index and also
// appended, normalized by the corpus page count's expected density, as one
// numeric feature.
type NestedCountExtractor struct {
	desc Description
	ctx  *Context

	// dataIndex is the stable per-blob data index for this run, recorded
	// on the first append. The same index is valid for every blob because
	// extraction appends in lockstep across the grid.
	dataIndex int
}

// NestedCountFactory creates NestedCountExtractor instances.
type NestedCountFactory struct {
	desc Description
}

// NewNestedCountFactory returns the nested-count factory.
func NewNestedCountFactory() *NestedCountFactory {
	return &NestedCountFactory{desc: Description{
		Name:    "nested",
		Summary: "number of blobs completely nested inside each blob's box",
	}}
}

// Description implements Factory.
func (f *NestedCountFactory) Description() Description { return f.desc }

// Create implements Factory.
func (f *NestedCountFactory) Create(ctx *Context) Extractor {
	return &NestedCountExtractor{desc: f.desc, ctx: ctx, dataIndex: -1}
}

// Description implements Extractor.
func (e *NestedCountExtractor) Description() Description { return e.desc }

// InitCorpus counts the training pages so later stages know the corpus
// size. The nested count itself needs no corpus statistics.
func (e *NestedCountExtractor) InitCorpus(ctx *Context) error {
	e.ctx = ctx
	if ctx.TrainingSetPath == "" {
		return nil
	}
	pages, err := ctx.CorpusPages()
	if err != nil {
		return err
	}
	ctx.PageCount = len(pages)
	return nil
}

// InitPage implements Extractor.
func (e *NestedCountExtractor) InitPage() { e.dataIndex = -1 }

// Extract appends the nested count for every blob in the grid.
func (e *NestedCountExtractor) Extract(g *grid.Grid) error {
	search := g.NewFullSearch()
	for b := search.Next(); b != nil; b = search.Next() {
		count := nestedCount(g, b)

		idx := b.AppendData(count)
		if e.dataIndex < 0 {
			e.dataIndex = idx
		}

		b.AppendFeatures(normalizeNested(count))
	}
	return nil
}

// NestedCountAt returns the count stored for the blob during the last
// Extract, using the run's stable data index.
func (e *NestedCountExtractor) NestedCountAt(b *grid.Blob) int {
	return b.DataAt(e.dataIndex).(int)
}

// nestedCount counts grid blobs whose boxes lie completely inside b's box.
func nestedCount(g *grid.Grid, b *grid.Blob) int {
	box := b.BoundingBox()
	count := 0
	g.EachIn(box, func(other *grid.Blob) bool {
		if other != b && box.Contains(other.BoundingBox()) {
			count++
		}
		return true
	})
	return count
}

// normalizeNested squashes the open-ended count into [0, 1).
func normalizeNested(count int) float64 {
	return float64(count) / float64(count+1)
}
