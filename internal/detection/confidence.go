package detection

import (
	"math"

	"github.com/scanlab/mathfind/internal/grid"
	"github.com/scanlab/mathfind/internal/ocr"
)

// ConfidenceExtractor turns the engine's recognition confidences and the
// bad-region verdict into numeric features. It appends five features per
// blob:
//
//	char confidence, word confidence, row average word confidence
//	(each rescaled to [0, 1]), in-recognized-word flag, bad-region flag
type ConfidenceExtractor struct {
	desc       Description
	ctx        *Context
	badRegions *BadRegionClassifier
}

// ConfidenceFactory creates ConfidenceExtractor instances.
type ConfidenceFactory struct {
	desc   Description
	policy BadRegionPolicy
}

// NewConfidenceFactory returns the confidence-feature factory. The policy
// parametrizes the bad-region classifier consulted during extraction.
func NewConfidenceFactory(policy BadRegionPolicy) *ConfidenceFactory {
	return &ConfidenceFactory{
		desc: Description{
			Name:    "confidence",
			Summary: "recognition confidences and bad-region membership",
		},
		policy: policy,
	}
}

// Description implements Factory.
func (f *ConfidenceFactory) Description() Description { return f.desc }

// Create implements Factory.
func (f *ConfidenceFactory) Create(ctx *Context) Extractor {
	return &ConfidenceExtractor{
		desc:       f.desc,
		ctx:        ctx,
		badRegions: NewBadRegionClassifier(f.policy),
	}
}

// Description implements Extractor.
func (e *ConfidenceExtractor) Description() Description { return e.desc }

// InitCorpus implements Extractor. Confidence features need no corpus
// statistics.
func (e *ConfidenceExtractor) InitCorpus(ctx *Context) error {
	e.ctx = ctx
	return nil
}

// InitPage implements Extractor.
func (e *ConfidenceExtractor) InitPage() {}

// Extract appends the confidence features for every blob in the grid.
func (e *ConfidenceExtractor) Extract(g *grid.Grid) error {
	search := g.NewFullSearch()
	for b := search.Next(); b != nil; b = search.Next() {
		inWord := 0.0
		if b.InRecognizedWord() {
			inWord = 1
		}
		inBad := 0.0
		if e.badRegions.Classify(b) {
			inBad = 1
		}
		b.AppendFeatures(
			rescaleConfidence(b.CharConfidence()),
			rescaleConfidence(b.WordConfidence()),
			rescaleConfidence(b.RowAverageWordConfidence()),
			inWord,
			inBad,
		)
	}
	return nil
}

// rescaleConfidence maps a certainty from [NoConfidence, 0] onto [0, 1],
// clamping values outside the engine's usual range. A NaN average (row with
// zero scored words) maps to 0 so it cannot poison a feature vector.
func rescaleConfidence(certainty float64) float64 {
	if math.IsNaN(certainty) {
		return 0
	}
	scaled := (certainty - ocr.NoConfidence) / -ocr.NoConfidence
	if scaled < 0 {
		return 0
	}
	if scaled > 1 {
		return 1
	}
	return scaled
}
