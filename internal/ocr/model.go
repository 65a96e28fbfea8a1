package ocr

import (
	"strings"

	"github.com/scanlab/mathfind/internal/geometry"
)

// NoConfidence is the sentinel certainty reported when no recognition result
// exists. It is lower than any certainty the engine legitimately produces.
const NoConfidence = -20.0

// ChoiceInfo holds the engine's choice information for one recognized
// character.
type ChoiceInfo struct {
	// Certainty is the engine's confidence in this choice. Higher values
	// indicate more certain recognition.
	Certainty float64 `json:"certainty"`
}

// Char is one recognized character. One Char may be shared by several blobs
// when the engine merged multiple image fragments into a single character.
type Char struct {
	// Unicode is the recognized character text.
	Unicode string `json:"unicode"`

	// Box is the character bounding box in page coordinates.
	Box geometry.Rect `json:"box"`

	choice *ChoiceInfo
	word   *Word
}

// NewChar creates a character result and appends it to the parent word's
// child list. A nil choice means the engine produced no usable choice
// information for this character.
func NewChar(word *Word, unicode string, box geometry.Rect, choice *ChoiceInfo) *Char {
	c := &Char{Unicode: unicode, Box: box, choice: choice, word: word}
	if word != nil {
		word.Chars = append(word.Chars, c)
	}
	return c
}

// Choice returns the engine's choice information, or nil when none exists.
func (c *Char) Choice() *ChoiceInfo { return c.choice }

// Certainty returns the choice certainty, or NoConfidence when no choice
// information exists.
func (c *Char) Certainty() float64 {
	if c.choice == nil {
		return NoConfidence
	}
	return c.choice.Certainty
}

// ParentWord returns the word this character belongs to, or nil.
func (c *Char) ParentWord() *Word { return c.word }

// WordChoice holds the engine's best choice for a whole word. Its certainty
// is the worst certainty among the word's individual characters, as defined
// by the engine.
type WordChoice struct {
	Certainty float64 `json:"certainty"`
}

// Word is one recognized word and its child characters.
type Word struct {
	// Text is the recognized word string.
	Text string `json:"text"`

	// Chars are the child character results in reading order.
	Chars []*Char `json:"-"`

	best  *WordChoice
	row   *Row
	valid bool
}

// NewWord creates a word result and appends it to the parent row's word
// list. valid marks words the engine matched against its dictionary.
func NewWord(row *Row, text string, best *WordChoice, valid bool) *Word {
	w := &Word{Text: text, best: best, row: row, valid: valid}
	if row != nil {
		row.Words = append(row.Words, w)
	}
	return w
}

// Best returns the engine's best choice for this word, or nil.
func (w *Word) Best() *WordChoice { return w.best }

// ParentRow returns the row this word belongs to, or nil.
func (w *Word) ParentRow() *Row { return w.row }

// Valid reports whether the engine recognized this word against its
// dictionary.
func (w *Word) Valid() bool { return w.valid }

// MatchesMathWord reports whether the recognized text is a word commonly
// found inside displayed or inline mathematical expressions.
func (w *Word) MatchesMathWord() bool { return mathWords[strings.ToLower(w.Text)] }

// MatchesStopword reports whether the recognized text is an ordinary
// function word, which strongly suggests running prose rather than math.
func (w *Word) MatchesStopword() bool { return stopwords[strings.ToLower(w.Text)] }

// Row is one recognized text row and its child words.
type Row struct {
	// Words are the child word results in reading order.
	Words []*Word `json:"-"`

	block  *Block
	normal bool

	avgWordConf      float64
	avgWordConfKnown bool
}

// NewRow creates a row result and appends it to the parent block's row list.
// normal marks rows the layout analysis considered ordinary validated text.
func NewRow(block *Block, normal bool) *Row {
	r := &Row{block: block, normal: normal}
	if block != nil {
		block.Rows = append(block.Rows, r)
	}
	return r
}

// ParentBlock returns the block this row belongs to, or nil.
func (r *Row) ParentBlock() *Block { return r.block }

// ConsideredNormal reports whether this row carries ordinary validated text.
func (r *Row) ConsideredNormal() bool { return r.normal }

// AvgWordConfidence returns the memoized row-level average word certainty
// and whether it has been computed yet.
func (r *Row) AvgWordConfidence() (float64, bool) {
	return r.avgWordConf, r.avgWordConfKnown
}

// SetAvgWordConfidence memoizes the row-level average word certainty. Once
// set it is never recomputed.
func (r *Row) SetAvgWordConfidence(avg float64) {
	r.avgWordConf = avg
	r.avgWordConfKnown = true
}

// Block is one page block and its child rows.
type Block struct {
	// Rows are the child row results in reading order.
	Rows []*Row `json:"-"`
}

// NewBlock creates an empty block result.
func NewBlock() *Block { return &Block{} }

// mathWords are words whose presence suggests mathematical context. The set
// covers common operator and function names that the engine recognizes as
// dictionary words.
var mathWords = map[string]bool{
	"sin": true, "cos": true, "tan": true, "log": true, "ln": true,
	"lim": true, "exp": true, "det": true, "max": true, "min": true,
	"arg": true, "mod": true, "gcd": true, "inf": true, "sup": true,
	"dim": true, "deg": true, "sec": true, "csc": true, "cot": true,
	"sinh": true, "cosh": true, "tanh": true, "arcsin": true,
	"arccos": true, "arctan": true,
}

// stopwords are high-frequency prose words. A recognized stopword almost
// always belongs to running text rather than a formula.
var stopwords = map[string]bool{
	"the": true, "of": true, "and": true, "a": true, "to": true,
	"in": true, "is": true, "that": true, "it": true, "was": true,
	"for": true, "on": true, "are": true, "as": true, "with": true,
	"his": true, "they": true, "at": true, "be": true, "this": true,
	"have": true, "from": true, "or": true, "had": true, "by": true,
	"but": true, "what": true, "some": true, "we": true, "can": true,
}
