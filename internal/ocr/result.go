package ocr

// PageResult is the full recognition output for one page.
type PageResult struct {
	// Blocks are the top-level layout blocks in page order.
	Blocks []*Block

	// Chars are all character-level results on the page, each carrying the
	// bounding box used to attach blobs to the hierarchy.
	Chars []*Char

	// FullText is the recognized page text with original spacing.
	FullText string
}
