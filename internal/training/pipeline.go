package training

import (
	"errors"
	"fmt"
	"log"

	"github.com/scanlab/mathfind/internal/detection"
	"github.com/scanlab/mathfind/internal/grid"
)

// Pipeline drives the full train/predict cycle: feature extraction over a
// training corpus, sample labeling against ground truth, training, and
// per-blob prediction on new pages.
//
// The stages must run in order: Configure, InitFeatureExtraction,
// CollectSamples per page, InitTraining, Train, then Predict or DetectPage.
// Predicting before a training run has completed is a programming error and
// aborts the process.
type Pipeline struct {
	groundTruthPath string
	trainingSetPath string
	ext             string

	ctx        *detection.Context
	extractor  detection.Extractor
	trainer    Trainer
	classifier Classifier

	samplesByImage [][]*Sample
	predictorPath  string
}

// NewPipeline returns a pipeline ready for Configure.
func NewPipeline(trainer Trainer) *Pipeline {
	return &Pipeline{trainer: trainer}
}

// Configure records the corpus locations. It does no I/O; the paths are
// validated lazily by the stages that read them.
func (p *Pipeline) Configure(groundTruthPath, trainingSetPath, ext string) {
	p.groundTruthPath = groundTruthPath
	p.trainingSetPath = trainingSetPath
	p.ext = ext
}

// InitFeatureExtraction builds the corpus context and runs the extractor's
// corpus pass.
func (p *Pipeline) InitFeatureExtraction(factory detection.Factory) error {
	p.ctx = &detection.Context{
		GroundTruthPath: p.groundTruthPath,
		TrainingSetPath: p.trainingSetPath,
		Ext:             p.ext,
	}
	pages, err := p.ctx.CorpusPages()
	if err != nil {
		return fmt.Errorf("failed to initialize feature extraction: %w", err)
	}
	p.ctx.PageCount = len(pages)

	p.extractor = factory.Create(p.ctx)
	if err := p.extractor.InitCorpus(p.ctx); err != nil {
		return fmt.Errorf("failed to initialize feature extraction: %w", err)
	}
	return nil
}

// Context returns the corpus context built by InitFeatureExtraction.
func (p *Pipeline) Context() *detection.Context { return p.ctx }

// CollectSamples extracts features for every blob on the page and labels each
// one against the ground truth for the given training image. Ground-truth
// rectangles are stored bottom-left origin, so each blob box is flipped into
// that space before the overlap test.
//
// An unreadable ground-truth file is fatal: training against an empty or
// missing truth file would silently produce an all-negative model.
func (p *Pipeline) CollectSamples(g *grid.Grid, imageIndex int) []*Sample {
	if p.extractor == nil {
		log.Fatalf("sample collection requested before feature extraction was initialized")
	}

	p.extractor.InitPage()
	if err := p.extractor.Extract(g); err != nil {
		log.Fatalf("feature extraction failed on image %d: %v", imageIndex, err)
	}

	var samples []*Sample
	cursor := g.NewFullSearch()
	for b := cursor.Next(); b != nil; b = cursor.Next() {
		gtBox := b.BoundingBox().FlipY(g.PageHeight())
		entry, err := FindOverlap(p.groundTruthPath, gtBox, imageIndex)
		if err != nil {
			log.Fatalf("cannot read ground truth %s: %v", p.groundTruthPath, err)
		}
		samples = append(samples, &Sample{
			Features: b.Features(),
			Label:    entry != nil,
			Box:      gtBox,
		})
	}
	return samples
}

// InitTraining hands the collected samples and model destination to the
// trainer. When no classifier was loaded beforehand, the trainer receives a
// fresh untrained one to fill in.
func (p *Pipeline) InitTraining(samplesByImage [][]*Sample, predictorPath string) {
	p.samplesByImage = samplesByImage
	p.predictorPath = predictorPath
	if p.classifier == nil {
		p.classifier = NewCentroidClassifier()
	}
	p.trainer.Init(p.classifier, p.extractor)
}

// Train runs the trainer over the collected samples, installs the trained
// classifier, and saves it when a predictor path was given.
func (p *Pipeline) Train() error {
	classifier, err := p.trainer.Train(p.samplesByImage)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	p.classifier = classifier

	if p.predictorPath != "" {
		saver, ok := classifier.(interface{ Save(string) error })
		if !ok {
			return errors.New("trained classifier does not support saving")
		}
		if err := saver.Save(p.predictorPath); err != nil {
			return fmt.Errorf("failed to save trained model: %w", err)
		}
	}
	return nil
}

// LoadClassifier installs a previously trained model, skipping the training
// stages.
func (p *Pipeline) LoadClassifier(c Classifier) {
	p.classifier = c
}

// IsTrained reports whether a trained classifier is installed.
func (p *Pipeline) IsTrained() bool {
	return p.classifier != nil && p.classifier.IsTrained()
}

// Predict returns the binary math verdict for one feature vector. Calling it
// without a trained classifier aborts: a caller that reaches prediction
// without a model has skipped a mandatory stage.
func (p *Pipeline) Predict(features []float64) bool {
	if p.classifier == nil || !p.classifier.IsTrained() {
		log.Fatalf("prediction requested on an untrained pipeline")
	}
	return p.classifier.Predict(features)
}

// DetectPage extracts features for the page and stamps every blob with its
// math verdict. Unlike Predict it reports missing-model as an error, so a
// long-running caller can refuse the request instead of dying.
func (p *Pipeline) DetectPage(g *grid.Grid) (int, error) {
	if p.classifier == nil || !p.classifier.IsTrained() {
		return 0, errors.New("no trained model loaded")
	}
	if p.extractor == nil {
		return 0, errors.New("feature extraction not initialized")
	}

	p.extractor.InitPage()
	if err := p.extractor.Extract(g); err != nil {
		return 0, fmt.Errorf("feature extraction failed: %w", err)
	}

	detected := 0
	cursor := g.NewFullSearch()
	for b := cursor.Next(); b != nil; b = cursor.Next() {
		if p.classifier.Predict(b.Features()) {
			b.SetMathDetected(true)
			detected++
		}
	}
	return detected, nil
}
