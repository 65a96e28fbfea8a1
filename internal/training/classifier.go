package training

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/scanlab/mathfind/internal/detection"
)

// Classifier is the binary math/non-math decision capability.
type Classifier interface {
	// Predict returns the binary verdict for one feature vector. Only
	// valid on a trained classifier.
	Predict(features []float64) bool

	// IsTrained reports whether the classifier is ready for prediction.
	IsTrained() bool
}

// Trainer produces a trained Classifier from labeled samples.
type Trainer interface {
	// Init hands the trainer the untrained classifier and the feature
	// extractor before sample collection starts.
	Init(c Classifier, e detection.Extractor)

	// Train consumes all samples, grouped per training image, and returns
	// the trained classifier.
	Train(samplesByImage [][]*Sample) (Classifier, error)
}

// CentroidClassifier is the default classifier: it keeps one centroid per
// class in feature space and predicts by nearest centroid. Ties resolve to
// non-math; a false negative here is cheaper than a false positive, since
// later segmentation can recover missed symbols but not invented ones.
type CentroidClassifier struct {
	// ModelID identifies the training run that produced this model.
	ModelID string `json:"model_id"`

	// MathCentroid and OtherCentroid are the per-class feature means.
	MathCentroid  []float64 `json:"math_centroid"`
	OtherCentroid []float64 `json:"other_centroid"`

	// Trained marks a model produced by a completed training run.
	Trained bool `json:"trained"`
}

// NewCentroidClassifier returns an untrained classifier.
func NewCentroidClassifier() *CentroidClassifier {
	return &CentroidClassifier{}
}

// IsTrained implements Classifier.
func (c *CentroidClassifier) IsTrained() bool { return c.Trained }

// Predict implements Classifier: the verdict is math when the feature
// vector lies strictly closer to the math centroid.
func (c *CentroidClassifier) Predict(features []float64) bool {
	return squaredDistance(features, c.MathCentroid) < squaredDistance(features, c.OtherCentroid)
}

// Save writes the model as JSON to the given path.
func (c *CentroidClassifier) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	return nil
}

// LoadCentroidClassifier reads a model previously written by Save.
func LoadCentroidClassifier(path string) (*CentroidClassifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}
	var c CentroidClassifier
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	return &c, nil
}

// CentroidTrainer trains a CentroidClassifier by averaging each class's
// feature vectors.
type CentroidTrainer struct {
	classifier Classifier
	extractor  detection.Extractor
}

// NewCentroidTrainer returns a centroid trainer.
func NewCentroidTrainer() *CentroidTrainer { return &CentroidTrainer{} }

// Init implements Trainer.
func (t *CentroidTrainer) Init(c Classifier, e detection.Extractor) {
	t.classifier = c
	t.extractor = e
}

// Train implements Trainer.
func (t *CentroidTrainer) Train(samplesByImage [][]*Sample) (Classifier, error) {
	var mathSum, otherSum []float64
	var mathCount, otherCount int

	for _, pageSamples := range samplesByImage {
		for _, s := range pageSamples {
			if s.Label {
				var err error
				if mathSum, err = accumulate(mathSum, s.Features); err != nil {
					return nil, err
				}
				mathCount++
			} else {
				var err error
				if otherSum, err = accumulate(otherSum, s.Features); err != nil {
					return nil, err
				}
				otherCount++
			}
		}
	}

	if mathCount == 0 || otherCount == 0 {
		return nil, fmt.Errorf("training set needs samples of both classes: math=%d non-math=%d",
			mathCount, otherCount)
	}

	// Fill in the classifier handed over at Init; fall back to a fresh one
	// when the trainer is driven standalone.
	model, _ := t.classifier.(*CentroidClassifier)
	if model == nil {
		model = NewCentroidClassifier()
	}
	model.ModelID = uuid.NewString()
	model.MathCentroid = scale(mathSum, 1/float64(mathCount))
	model.OtherCentroid = scale(otherSum, 1/float64(otherCount))
	model.Trained = true
	return model, nil
}

// accumulate adds v into sum elementwise, allocating on first use.
func accumulate(sum, v []float64) ([]float64, error) {
	if sum == nil {
		sum = make([]float64, len(v))
	}
	if len(sum) != len(v) {
		return nil, fmt.Errorf("inconsistent feature vector length: %d vs %d", len(v), len(sum))
	}
	for i, x := range v {
		sum[i] += x
	}
	return sum, nil
}

func scale(v []float64, factor float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * factor
	}
	return out
}

func squaredDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
