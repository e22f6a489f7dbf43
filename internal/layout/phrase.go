package layout

import (
	"math"
	"strings"
)

// PositionedFragment is one positioned, styled text run supplied by the
// layout extraction stage, in document reading order (top-to-bottom,
// left-to-right within a line).
type PositionedFragment struct {
	Text  string
	Style StyleDescriptor
}

// Phrase is a run of fragments merged into one logical token. Anchor is the
// style of the first fragment, Tail the style of the last; the continuation
// rules guarantee every merged fragment shares the anchor's font size and
// weight.
type Phrase struct {
	Anchor StyleDescriptor
	Tail   StyleDescriptor
	Text   string
}

// Role classifies the phrase by its anchor style.
func (p Phrase) Role() Role {
	return p.Anchor.Role()
}

// sameLineTolerance applies to the sum of anchor and tail top offsets,
// approximating the phrase's vertical center for wrapped phrases.
const sameLineTolerance = 0.1

// OnSameLineAs reports whether two phrases sit on the same visual line,
// which is what separates table rows: a value phrase below the previous one
// starts a new answer record.
func (p Phrase) OnSameLineAs(prev *Phrase) bool {
	if prev == nil {
		return false
	}
	return math.Abs(p.Anchor.Top+p.Tail.Top-(prev.Anchor.Top+prev.Tail.Top)) < sameLineTolerance
}

// AlignedWith reports whether this phrase starts under the given label
// phrase.
func (p Phrase) AlignedWith(label Phrase) bool {
	return p.Anchor.HorizontallyAlignedWith(label.Anchor)
}

func (p Phrase) String() string {
	return p.Text
}

// AssemblePhrases merges the ordered fragment sequence into phrases. The
// partition is exhaustive and order-preserving: every fragment lands in
// exactly one phrase, phrase texts joined by single spaces. Empty input
// yields an empty slice.
func AssemblePhrases(fragments []PositionedFragment) []Phrase {
	var phrases []Phrase
	var words []string
	var first, last StyleDescriptor

	for _, f := range fragments {
		if len(words) > 0 && !f.Style.ContinuesLine(&last) {
			phrases = append(phrases, Phrase{Anchor: first, Tail: last, Text: strings.Join(words, " ")})
			words = nil
		}
		if len(words) == 0 {
			first = f.Style
		}
		words = append(words, f.Text)
		last = f.Style
	}
	if len(words) > 0 {
		phrases = append(phrases, Phrase{Anchor: first, Tail: last, Text: strings.Join(words, " ")})
	}
	return phrases
}
