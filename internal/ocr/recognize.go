//go:build !cgo || !linux

package ocr

import "errors"

// Available reports whether the Tesseract engine can be used in this build.
func Available() bool { return false }

// ErrEngineUnavailable is returned when recognition is requested from a
// build without the Tesseract bindings.
var ErrEngineUnavailable = errors.New("ocr: tesseract engine not available in this build (requires cgo on linux)")

// RecognizePage is a stub for builds without the Tesseract bindings. The
// rest of the system still works with recognition hierarchies supplied by
// other means.
func RecognizePage(imagePath, language string) (*PageResult, error) {
	return nil, ErrEngineUnavailable
}
