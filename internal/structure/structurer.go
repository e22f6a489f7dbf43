package structure

import (
	"github.com/dfe-digital/nomination-uploader/internal/layout"
)

// DefaultBoilerplate lists the fixed banner and footer strings the
// nomination form injects on every submission. Phrases matching one of these
// exactly are discarded before any structuring step.
var DefaultBoilerplate = []string{
	"You have a new nomination submission",
	"View full details",
	"-- Cabinet Office Honours and Appointments Secretariat 1 Horse Guards Road London null SW1A 2HQ " +
		"United Kingdom null null T: 020 7276 2777",
}

// preambleSectionLabel names the synthetic section opened lazily when
// content appears before the first section banner.
const preambleSectionLabel = "Preamble"

// Structurer folds a classified phrase sequence into the section/question/
// answer tree. One instance may be reused across documents; each Structure
// call carries its own state.
type Structurer struct {
	boilerplate map[string]struct{}
}

// NewStructurer returns a structurer with the default boilerplate set.
func NewStructurer() *Structurer {
	return NewStructurerWithBoilerplate(DefaultBoilerplate)
}

// NewStructurerWithBoilerplate returns a structurer discarding the given
// exact phrase texts.
func NewStructurerWithBoilerplate(lines []string) *Structurer {
	set := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		set[l] = struct{}{}
	}
	return &Structurer{boilerplate: set}
}

// Structure runs the single left-to-right pass over the phrases and returns
// the document tree. It fails with a *StructuralParseError when a question
// would end up holding both a free-text answer and structured records.
func (st *Structurer) Structure(phrases []layout.Phrase) (*Document, error) {
	doc := &Document{}

	var current *Section
	var activeLabels []layout.Phrase
	gatheringHeaders := false
	var previousValue *layout.Phrase

	// Content ahead of the first section banner lands in a synthetic
	// leading section rather than being dropped.
	ensureSection := func() *Section {
		if current == nil {
			current = newSection(preambleSectionLabel)
			doc.Sections = append(doc.Sections, current)
		}
		return current
	}

	for i := range phrases {
		phrase := phrases[i]
		if _, skip := st.boilerplate[phrase.Text]; skip {
			continue
		}

		role := phrase.Role()

		if role == layout.RoleData {
			// Keep the most recently declared label among all aligned
			// candidates; repeated header runs shadow earlier ones.
			match := -1
			for j, label := range activeLabels {
				if phrase.AlignedWith(label) {
					match = j
				}
			}

			q := ensureSection().currentQuestion()
			if match < 0 {
				if err := q.appendSimple(phrase.Text); err != nil {
					return nil, st.parseError(current, q, phrase, err)
				}
			} else {
				if previousValue != nil && !phrase.OnSameLineAs(previousValue) {
					if err := q.addRecord(); err != nil {
						return nil, st.parseError(current, q, phrase, err)
					}
				}
				if err := q.setField(activeLabels[match].Text, phrase.Text); err != nil {
					return nil, st.parseError(current, q, phrase, err)
				}
				previousValue = &phrases[i]
			}
		} else {
			previousValue = nil
		}

		if role == layout.RoleLabel {
			if !gatheringHeaders {
				activeLabels = activeLabels[:0]
			}
			activeLabels = append(activeLabels, phrase)
			gatheringHeaders = true
		} else {
			gatheringHeaders = false
		}

		if role == layout.RoleQuestion {
			ensureSection().addQuestion(phrase.Text)
			activeLabels = activeLabels[:0]
		}

		if role == layout.RoleSection {
			current = newSection(phrase.Text)
			doc.Sections = append(doc.Sections, current)
			activeLabels = activeLabels[:0]
		}
	}

	return doc, nil
}

func (st *Structurer) parseError(section *Section, q *Question, phrase layout.Phrase, err error) error {
	e := &StructuralParseError{Question: q.Label, Phrase: phrase.Text, Err: err}
	if section != nil {
		e.Section = section.Label
	}
	return e
}
