package detection

import (
	"fmt"
	"path/filepath"

	"github.com/scanlab/mathfind/internal/grid"
)

// Description identifies one feature extractor variant.
type Description struct {
	// Name is the short machine-readable extractor name.
	Name string `json:"name"`

	// Summary explains what the extractor measures.
	Summary string `json:"summary"`
}

// Context holds page- and corpus-level aggregates computed once per corpus
// and shared by every extractor created for that corpus.
type Context struct {
	// GroundTruthPath locates the ground-truth rectangle file.
	GroundTruthPath string `json:"ground_truth_path"`

	// TrainingSetPath locates the directory of training page images.
	TrainingSetPath string `json:"training_set_path"`

	// Ext is the page image file extension, including the dot.
	Ext string `json:"ext"`

	// PageCount is the number of pages in the training set, filled by the
	// corpus initialization pass.
	PageCount int `json:"page_count"`
}

// CorpusPages lists the training-set page image paths in lexical order.
func (ctx *Context) CorpusPages() ([]string, error) {
	pattern := filepath.Join(ctx.TrainingSetPath, "*"+ctx.Ext)
	pages, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to list training pages: %w", err)
	}
	return pages, nil
}

// Extractor computes numeric features per blob and appends them to each
// blob's feature vector.
//
// Lifecycle: InitCorpus runs once before any per-page work and may compute
// corpus-wide statistics; InitPage resets per-page state; Extract appends
// features for every blob in the given grid. An extractor contributing
// opaque per-blob data must contribute an entry for every blob in the run so
// the stable data indices stay aligned across blobs.
type Extractor interface {
	Description() Description
	InitCorpus(ctx *Context) error
	InitPage()
	Extract(g *grid.Grid) error
}

// Factory owns an extractor variant's metadata and creates fresh extractor
// instances bound to a corpus context.
type Factory interface {
	Description() Description
	Create(ctx *Context) Extractor
}

// NewFactory returns the factory for the named extractor variant.
func NewFactory(variant string) (Factory, error) {
	switch variant {
	case "nested", "":
		return NewNestedCountFactory(), nil
	case "confidence":
		return NewConfidenceFactory(DefaultBadRegionPolicy()), nil
	case "combined":
		return NewCompositeFactory(
			NewNestedCountFactory(),
			NewConfidenceFactory(DefaultBadRegionPolicy()),
		), nil
	default:
		return nil, fmt.Errorf("unknown extractor variant: %s", variant)
	}
}

// Composite runs several extractors in order, presenting them as one.
type Composite struct {
	desc       Description
	extractors []Extractor
}

// CompositeFactory creates Composite extractors from a fixed factory list.
type CompositeFactory struct {
	desc      Description
	factories []Factory
}

// NewCompositeFactory combines the given factories into one.
func NewCompositeFactory(factories ...Factory) *CompositeFactory {
	return &CompositeFactory{
		desc: Description{
			Name:    "combined",
			Summary: "runs every configured extractor in order",
		},
		factories: factories,
	}
}

// Description implements Factory.
func (f *CompositeFactory) Description() Description { return f.desc }

// Create implements Factory.
func (f *CompositeFactory) Create(ctx *Context) Extractor {
	c := &Composite{desc: f.desc}
	for _, factory := range f.factories {
		c.extractors = append(c.extractors, factory.Create(ctx))
	}
	return c
}

// Description implements Extractor.
func (c *Composite) Description() Description { return c.desc }

// InitCorpus implements Extractor.
func (c *Composite) InitCorpus(ctx *Context) error {
	for _, e := range c.extractors {
		if err := e.InitCorpus(ctx); err != nil {
			return err
		}
	}
	return nil
}

// InitPage implements Extractor.
func (c *Composite) InitPage() {
	for _, e := range c.extractors {
		e.InitPage()
	}
}

// Extract implements Extractor.
func (c *Composite) Extract(g *grid.Grid) error {
	for _, e := range c.extractors {
		if err := e.Extract(g); err != nil {
			return err
		}
	}
	return nil
}
