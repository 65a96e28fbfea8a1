// Package detection classifies page regions and extracts per-blob numeric
// features for math-expression detection.
//
// # Bad Region Classification
//
// Scanned pages contain areas the OCR engine cannot make sense of: speckle,
// halftone bleed-through, rules and figures broken into fragments. The
// BadRegionClassifier labels such areas by walking a bounded set of spatial
// neighbors and scoring each as good (carries a usable recognition result)
// or bad (no result, sentinel confidence, or already known to sit in a bad
// region). Verdicts are memoized on the blobs themselves and stamped onto
// every visited neighbor, so a cold classification costs at most two bounded
// walks and every later query is O(1).
//
// Classification only applies to blobs outside recognized rows; rows already
// carry validated text.
//
// # Feature Extraction
//
// Extractors compute numeric features per blob and append them to the
// blob's feature vector. A Factory carries identifying metadata and creates
// fresh extractor instances bound to a Context of corpus-level aggregates.
// Extractors follow a three-phase lifecycle: one corpus-wide initialization,
// a per-page reset, then per-page extraction over the full grid.
//
// An extractor that appends per-blob bookkeeping data must do so for every
// blob in the run; the index returned by the first append is its stable key
// for all blobs.
package detection
