// Package training builds labeled samples from blob grids and drives the
// classifier lifecycle for math-expression detection.
//
// # Samples and Labels
//
// One Sample is produced per blob: its extracted feature vector, its
// bounding box converted into the ground-truth coordinate space, and a
// binary label. The label is true exactly when the box has a non-zero-area
// intersection with at least one ground-truth rectangle tagged with the
// page's image index.
//
// # Ground Truth
//
// The ground-truth source is a text file of bounded-length records, one
// rectangle each. Records that fail to parse, or exceed the length bound,
// are skipped silently; an unreadable source is fatal. The file is opened,
// scanned, and closed within each lookup.
//
// # Pipeline
//
// The pipeline composes three capabilities:
//
//	Extractor   detection.Extractor       per-blob feature computation
//	Trainer     Train(samples) Classifier produces a trained classifier
//	Classifier  Predict(vector) bool      binary verdict, reports IsTrained
//
// Training collects samples per corpus page, hands them to the trainer,
// and replaces the pipeline's classifier with the trainer's output.
// Prediction on an untrained classifier terminates the process; checking
// IsTrained first is the caller's responsibility for recoverable flows.
package training
