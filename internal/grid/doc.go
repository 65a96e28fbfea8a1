// Package grid provides the spatial blob data model for scanned pages.
//
// A Blob wraps one connected image fragment: its bounding box, its raster
// image, the recognition result the OCR engine attached to it, and the
// per-extractor data and numeric features accumulated during detection. A
// Grid indexes all blobs on one page and supports two traversals:
//
//   - Full search: every blob on the page in deterministic reading order
//     (top-to-bottom, left-to-right).
//   - Side search: blobs spatially adjacent to a start position within a
//     vertical band, walked in one horizontal direction until exhaustion.
//
// Both traversals are exposed as restartable cursors that never mutate the
// grid.
//
// # Ownership
//
// Each raster image is owned by exactly one Blob and freed by Release. Blobs
// hold only non-owning upward references: to their parent grid and to the
// character-level recognition result, which may be shared between several
// blobs when the engine merged fragments into one character.
//
// Merge descriptors are shared by every blob in a merge group through one
// MergeSlot. Whichever blob releases first frees the underlying descriptor;
// the slot guarantees the release happens exactly once regardless of release
// order.
//
// # Concurrency
//
// The grid is built and traversed single-threaded. Cursors are cheap to
// create and may coexist, but concurrent mutation of the grid or of blob
// memo state is not supported; only the merge-slot release is guarded
// against concurrent callers.
package grid
