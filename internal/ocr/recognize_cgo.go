//go:build cgo && linux

package ocr

import (
	"fmt"
	"sort"

	"github.com/otiai10/gosseract/v2"

	"github.com/scanlab/mathfind/internal/geometry"
)

// Available reports whether the Tesseract engine can be used in this build.
func Available() bool { return true }

// RecognizePage runs Tesseract on the given page image and assembles the
// recognition hierarchy.
//
// The adapter builds the Block/Row/Word levels from Tesseract's verbose
// word boxes (which carry block and line numbers) and the Char level from
// symbol boxes, attaching each symbol to the word whose box encloses it.
// Symbols that fall outside every word box are dropped; the blobs they cover
// simply remain without a character result, which downstream code treats as
// the NoConfidence sentinel.
//
// Tesseract reports word and symbol confidence on a 0-100 scale. The adapter
// rescales it onto the engine's certainty scale, where 0 is perfectly
// certain and NoConfidence is the floor:
//
//	certainty = (confidence - 100) / 5
//
// language selects the Tesseract language model; empty keeps the engine
// default.
func RecognizePage(imagePath, language string) (*PageResult, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if language != "" {
		if err := client.SetLanguage(language); err != nil {
			return nil, fmt.Errorf("failed to set language %q: %w", language, err)
		}
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	words, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("failed to get word boxes: %w", err)
	}

	symbols, err := client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol boxes: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("recognition failed: %w", err)
	}

	result := &PageResult{FullText: text}

	// Group words into blocks and rows by Tesseract's own numbering.
	sort.SliceStable(words, func(i, j int) bool {
		if words[i].BlockNum != words[j].BlockNum {
			return words[i].BlockNum < words[j].BlockNum
		}
		if words[i].LineNum != words[j].LineNum {
			return words[i].LineNum < words[j].LineNum
		}
		return words[i].WordNum < words[j].WordNum
	})

	var (
		block        *Block
		row          *Row
		curBlock     = -1
		curLine      = -1
		wordsByOrder []*Word
		wordBoxes    []geometry.Rect
	)
	for _, wb := range words {
		if wb.Word == "" {
			continue
		}
		if block == nil || wb.BlockNum != curBlock {
			block = NewBlock()
			result.Blocks = append(result.Blocks, block)
			curBlock = wb.BlockNum
			curLine = -1
		}
		if row == nil || wb.LineNum != curLine {
			row = NewRow(block, true)
			curLine = wb.LineNum
		}
		certainty := (wb.Confidence - 100) / 5
		word := NewWord(row, wb.Word, &WordChoice{Certainty: certainty}, wb.Confidence >= validWordConfidence)
		wordsByOrder = append(wordsByOrder, word)
		wordBoxes = append(wordBoxes, geometry.Rect{
			X1: wb.Box.Min.X, Y1: wb.Box.Min.Y,
			X2: wb.Box.Max.X, Y2: wb.Box.Max.Y,
		})
	}

	for _, sb := range symbols {
		symBox := geometry.Rect{
			X1: sb.Box.Min.X, Y1: sb.Box.Min.Y,
			X2: sb.Box.Max.X, Y2: sb.Box.Max.Y,
		}
		word := enclosingWord(wordsByOrder, wordBoxes, symBox)
		if word == nil {
			continue
		}
		certainty := (sb.Confidence - 100) / 5
		char := NewChar(word, sb.Word, symBox, &ChoiceInfo{Certainty: certainty})
		result.Chars = append(result.Chars, char)
	}

	return result, nil
}

// validWordConfidence is the minimum Tesseract word confidence for a word to
// count as recognized against the dictionary.
const validWordConfidence = 70.0

// enclosingWord finds the word whose box overlaps the symbol box the most.
func enclosingWord(words []*Word, boxes []geometry.Rect, sym geometry.Rect) *Word {
	var best *Word
	bestArea := 0
	for i, box := range boxes {
		area := box.Intersect(sym).Area()
		if area > bestArea {
			bestArea = area
			best = words[i]
		}
	}
	return best
}
