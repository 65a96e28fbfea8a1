// Package config loads the detector's YAML configuration: corpus locations,
// extractor selection, OCR settings, and the bad-region policy.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/scanlab/mathfind/internal/detection"
)

// Config is the full on-disk configuration.
type Config struct {
	// Training locates the corpus used for training runs.
	Training TrainingConfig `yaml:"training"`

	// Extractor selects the feature extractor variant: "nested",
	// "confidence", or "combined". Empty selects the default.
	Extractor string `yaml:"extractor"`

	// OCR configures the recognition engine.
	OCR OCRConfig `yaml:"ocr"`

	// BadRegion tunes the bad-region classifier.
	BadRegion BadRegionConfig `yaml:"bad_region"`
}

// TrainingConfig locates the training corpus and the trained model.
type TrainingConfig struct {
	// GroundTruth is the path to the ground-truth rectangle file.
	GroundTruth string `yaml:"ground_truth"`

	// TrainingSet is the directory holding the training page images.
	TrainingSet string `yaml:"training_set"`

	// Extension is the page image extension, including the dot.
	Extension string `yaml:"extension"`

	// Predictor is where the trained model is saved and loaded.
	Predictor string `yaml:"predictor"`
}

// OCRConfig configures the recognition engine.
type OCRConfig struct {
	// Language is the recognition language code (e.g. "eng").
	Language string `yaml:"language"`

	// Disabled skips recognition even when the engine is available. Pages
	// are then classified on spatial features alone.
	Disabled bool `yaml:"disabled"`
}

// BadRegionConfig tunes the bad-region classifier. The zero value for a
// numeric field means "use the default"; ForceBadOverride is an explicit
// pointer so that false can be configured.
type BadRegionConfig struct {
	GoodRatioThreshold float64 `yaml:"good_ratio_threshold"`
	WalkLimit          int     `yaml:"walk_limit"`
	ForceBadOverride   *bool   `yaml:"force_bad_override"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Training: TrainingConfig{
			Extension: ".png",
			Predictor: "predictor.json",
		},
		Extractor: "combined",
		OCR:       OCRConfig{Language: "eng"},
	}
}

// Load reads and validates a YAML configuration file, filling unset fields
// with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Extractor {
	case "", "nested", "confidence", "combined":
	default:
		return fmt.Errorf("unknown extractor variant: %s", c.Extractor)
	}
	if c.Training.Extension != "" && c.Training.Extension[0] != '.' {
		return fmt.Errorf("extension must start with a dot: %s", c.Training.Extension)
	}
	if c.BadRegion.GoodRatioThreshold < 0 {
		return fmt.Errorf("good_ratio_threshold must not be negative: %g", c.BadRegion.GoodRatioThreshold)
	}
	if c.BadRegion.WalkLimit < 0 {
		return fmt.Errorf("walk_limit must not be negative: %d", c.BadRegion.WalkLimit)
	}
	return nil
}

// BadRegionPolicy converts the configured values into a classifier policy,
// falling back to the defaults for unset fields.
func (c *Config) BadRegionPolicy() detection.BadRegionPolicy {
	policy := detection.DefaultBadRegionPolicy()
	if c.BadRegion.GoodRatioThreshold > 0 {
		policy.GoodRatioThreshold = c.BadRegion.GoodRatioThreshold
	}
	if c.BadRegion.WalkLimit > 0 {
		policy.WalkLimit = c.BadRegion.WalkLimit
	}
	if c.BadRegion.ForceBadOverride != nil {
		policy.ForceBad = *c.BadRegion.ForceBadOverride
	}
	return policy
}
