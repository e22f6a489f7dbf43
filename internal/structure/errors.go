package structure

import "fmt"

// StructuralParseError reports a question that received both a free-text
// answer and structured records. The form template renders each question one
// way or the other, so this signals a classifier or template mismatch that
// needs human inspection, not a transient fault. The pass that produced it
// stops at the offending phrase.
type StructuralParseError struct {
	Section  string
	Question string
	Phrase   string
	Err      error
}

func (e *StructuralParseError) Error() string {
	return fmt.Sprintf("structural parse error in section %q, question %q at %q: %v",
		e.Section, e.Question, e.Phrase, e.Err)
}

func (e *StructuralParseError) Unwrap() error {
	return e.Err
}
