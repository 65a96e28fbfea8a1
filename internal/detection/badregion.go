package detection

import (
	"github.com/scanlab/mathfind/internal/grid"
	"github.com/scanlab/mathfind/internal/ocr"
)

// BadRegionPolicy controls the bad-region decision.
type BadRegionPolicy struct {
	// GoodRatioThreshold is the minimum good/bad ratio for a region to be
	// considered good.
	GoodRatioThreshold float64 `json:"good_ratio_threshold"`

	// WalkLimit caps the number of neighbors visited per cold
	// classification.
	WalkLimit int `json:"walk_limit"`

	// ForceBad, when set, overrides the threshold-computed verdict and
	// makes the final decision "bad" unconditionally. This reproduces the
	// historical behavior of the detector; Evaluate exposes both decisions
	// so the two policies can be compared.
	ForceBad bool `json:"force_bad"`
}

// DefaultBadRegionPolicy returns the policy matching the historical
// detector: threshold 0.4, walk limit 20, forced-bad final verdict.
func DefaultBadRegionPolicy() BadRegionPolicy {
	return BadRegionPolicy{
		GoodRatioThreshold: 0.4,
		WalkLimit:          20,
		ForceBad:           true,
	}
}

// BadRegionEvaluation reports both decision stages for one blob.
type BadRegionEvaluation struct {
	// Computed is the verdict the good/bad ratio produced.
	Computed bool `json:"computed"`

	// Final is the verdict after the ForceBad policy, and what got
	// memoized.
	Final bool `json:"final"`

	// Good and Bad are the neighbor counts behind the ratio.
	Good int `json:"good"`
	Bad  int `json:"bad"`
}

// BadRegionClassifier labels spatial regions as low-confidence noise.
//
// Neighbor verdicts are consulted from the memo table only: a cold neighbor
// is scored on its recognition result and confidence alone, never by
// resolving it in turn. This keeps the walk depth bounded even if the
// neighbor-search collaborator ever produced cyclic adjacency, and it is
// what makes cold-region ratios meaningful.
type BadRegionClassifier struct {
	policy BadRegionPolicy
}

// NewBadRegionClassifier creates a classifier with the given policy.
func NewBadRegionClassifier(policy BadRegionPolicy) *BadRegionClassifier {
	return &BadRegionClassifier{policy: policy}
}

// Policy returns the classifier's policy.
func (c *BadRegionClassifier) Policy() BadRegionPolicy { return c.policy }

// Classify returns the final bad-region verdict for the blob, computing and
// memoizing it on first use. Blobs inside a recognized row are never bad.
func (c *BadRegionClassifier) Classify(b *grid.Blob) bool {
	return c.Evaluate(b).Final
}

// Evaluate is Classify with both decision stages exposed. A memoized blob
// reports its cached verdict in both stages with zero neighbor counts and
// performs no traversal.
func (c *BadRegionClassifier) Evaluate(b *grid.Blob) BadRegionEvaluation {
	if b.ParentRow() != nil {
		return BadRegionEvaluation{}
	}
	if bad, known := b.BadRegion(); known {
		return BadRegionEvaluation{Computed: bad, Final: bad}
	}

	var good, bad float64
	c.walk(b, func(cur *grid.Blob) {
		if c.neighborBad(cur) {
			bad++
		} else {
			good++
		}
	})

	eval := BadRegionEvaluation{Good: int(good), Bad: int(bad)}
	// 0/0 is NaN and NaN < threshold is false, so an isolated blob
	// computes as good. Matches the historical float arithmetic.
	eval.Computed = good/bad < c.policy.GoodRatioThreshold
	eval.Final = eval.Computed
	if c.policy.ForceBad {
		eval.Final = true
	}

	// Second bounded walk over the same neighbor set: stamp every visited
	// blob with the final verdict so later queries on any of them are
	// O(1).
	c.walk(b, func(cur *grid.Blob) {
		cur.SetBadRegion(eval.Final)
	})
	b.SetBadRegion(eval.Final)

	return eval
}

// neighborBad scores one visited neighbor: bad when it carries no character
// result, when its memoized verdict is bad, or when its recognition
// confidence is the no-confidence sentinel. Row membership is resolved
// before the memo: a blob inside a recognized row scores on its confidence
// alone, even if an earlier walk stamped it bad.
func (c *BadRegionClassifier) neighborBad(cur *grid.Blob) bool {
	if cur.ParentChar() == nil {
		return true
	}
	if cur.ParentRow() == nil {
		if bad, known := cur.BadRegion(); known && bad {
			return true
		}
	}
	return cur.CharConfidence() == ocr.NoConfidence
}

// walk visits up to WalkLimit side-search neighbors of b, skipping b
// itself, starting from its right edge. The walk direction follows the
// search collaborator's semantics: rightToLeft false moves toward larger X.
func (c *BadRegionClassifier) walk(b *grid.Blob, visit func(*grid.Blob)) {
	g := b.ParentGrid()
	if g == nil {
		return
	}
	box := b.BoundingBox()
	search := g.NewSideSearch(box.X2, box.Y1, box.Y2)
	const rightToLeft = false
	count := 0
	for cur := search.Next(rightToLeft); cur != nil; cur = search.Next(rightToLeft) {
		if cur == b {
			continue
		}
		visit(cur)
		count++
		if count == c.policy.WalkLimit {
			break
		}
	}
}
