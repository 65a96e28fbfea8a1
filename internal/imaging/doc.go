// Package imaging handles the raster side of page analysis: loading page
// images, binarizing them, segmenting ink into connected components, and
// rendering detection results back onto the page.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Regions use an inclusive
// top-left corner (x1,y1) and an exclusive bottom-right corner (x2,y2).
// Ground-truth files use a bottom-left origin instead; that conversion
// happens in the training layer, never here.
//
// # Segmentation
//
// SegmentPage thresholds the page with an Otsu-selected level and extracts
// one blob per 4-connected ink component. Each blob owns a cropped copy of
// its region of the original image, so the page image itself can be evicted
// once segmentation completes.
//
// # Thread Safety
//
// PageCache is safe for concurrent use. The remaining operations are
// stateless and can run concurrently on different images.
//
// # Performance Considerations
//
// Cached pages stay in memory until evicted. Training runs that iterate a
// large corpus should Evict each page after collecting its samples.
package imaging
