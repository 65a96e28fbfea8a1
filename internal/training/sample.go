package training

import "github.com/scanlab/mathfind/internal/geometry"

// Sample is one blob's labeled feature vector. Samples live for one
// training or prediction round and are owned by the pipeline.
type Sample struct {
	// Features is the blob's extracted feature vector.
	Features []float64 `json:"features"`

	// Label is true for math, false for non-math.
	Label bool `json:"label"`

	// Box is the blob's bounding box converted into the ground-truth
	// coordinate space.
	Box geometry.Rect `json:"box"`
}
