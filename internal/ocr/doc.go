// Package ocr models the recognition results produced by the OCR engine and
// adapts Tesseract as the engine that produces them.
//
// # Result Hierarchy
//
// Recognition results form a strict containment hierarchy:
//
//	Block ⊐ Row ⊐ Word ⊐ Char
//
// Each level holds its children and a non-owning reference to its parent.
// Image fragments (blobs) attach to the hierarchy at the Char level; several
// neighboring blobs may share one Char when the engine merges fragments into
// a single character (broken glyphs, symbols like '=').
//
// # Confidence Sentinel
//
// The absence of a recognition result is data, not an error. NoConfidence is
// a certainty value lower than anything the engine produces; accessors return
// it whenever no result (or no choice information) is available, so callers
// never need to distinguish "missing" from "recognized badly" unless they
// want to.
//
// # Engine Adapter
//
// On Linux with CGO enabled, RecognizePage runs Tesseract via the gosseract
// library and assembles the hierarchy from block, line, word, and symbol
// iterators. On other platforms RecognizePage reports the engine as
// unavailable; the rest of the system works with hierarchies built by other
// means (including tests).
package ocr
