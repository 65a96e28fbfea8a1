package training

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/scanlab/mathfind/internal/geometry"
)

// maxRecordLen bounds one ground-truth record. Longer lines are treated as
// malformed and skipped.
const maxRecordLen = 55

// GroundTruthEntry is one parsed ground-truth rectangle. Entries are
// ephemeral: parsed from one record, checked against one blob, and
// discarded.
type GroundTruthEntry struct {
	// ImageIndex ties the rectangle to one page of the training set.
	ImageIndex int `json:"image_index"`

	// Kind is the annotated region type (e.g. "displayed", "embedded",
	// "label"). Informational; labeling treats all kinds alike.
	Kind string `json:"kind"`

	// Rect is the annotated rectangle in the ground-truth coordinate
	// space.
	Rect geometry.Rect `json:"rect"`
}

// ParseRecord parses one ground-truth record of the form
//
//	<image>.<ext> <kind> <x1> <y1> <x2> <y2>
//
// where <image> is the page's numeric index. Returns ok false for any
// malformed or over-length record.
func ParseRecord(line string) (GroundTruthEntry, bool) {
	if len(line) > maxRecordLen {
		return GroundTruthEntry{}, false
	}
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return GroundTruthEntry{}, false
	}

	name := fields[0]
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		name = name[:dot]
	}
	index, err := strconv.Atoi(name)
	if err != nil {
		return GroundTruthEntry{}, false
	}

	var coords [4]int
	for i, f := range fields[2:] {
		v, err := strconv.Atoi(f)
		if err != nil {
			return GroundTruthEntry{}, false
		}
		coords[i] = v
	}

	rect := geometry.Rect{X1: coords[0], Y1: coords[1], X2: coords[2], Y2: coords[3]}
	if rect.Empty() {
		return GroundTruthEntry{}, false
	}

	return GroundTruthEntry{ImageIndex: index, Kind: fields[1], Rect: rect}, true
}

// FindOverlap scans the ground-truth file record by record and returns the
// first entry tagged with imageIndex whose rectangle has a non-zero-area
// intersection with box, or nil when no record matches. Non-matching
// parsed records are discarded immediately.
//
// The file is opened and closed within this call. An open failure is
// returned as an error; the pipeline treats it as fatal.
func FindOverlap(path string, box geometry.Rect, imageIndex int) (*GroundTruthEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ground truth %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry, ok := ParseRecord(scanner.Text())
		if !ok {
			continue
		}
		if entry.ImageIndex != imageIndex {
			continue
		}
		if entry.Rect.Overlaps(box) {
			return &entry, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ground truth %s: %w", path, err)
	}
	return nil, nil
}
