package structure

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AnswerRecord is one structured row of field to value pairs under a
// question. Keys are the column label texts.
type AnswerRecord map[string]string

var (
	errSimpleAfterRecords = errors.New("free-text answer added to a question holding structured records")
	errRecordAfterSimple  = errors.New("structured record added to a question holding a free-text answer")
)

// Question holds either one free-text answer (lines joined by newline) or an
// ordered list of answer records, never both.
type Question struct {
	Label string

	simple  *string
	records []AnswerRecord
	last    AnswerRecord
}

// SimpleAnswer returns the free-text answer and whether one was set.
func (q *Question) SimpleAnswer() (string, bool) {
	if q.simple == nil {
		return "", false
	}
	return *q.simple, true
}

// Records returns the question's answer records in the order they were
// opened.
func (q *Question) Records() []AnswerRecord {
	return q.records
}

func (q *Question) appendSimple(line string) error {
	if len(q.records) > 0 {
		return errSimpleAfterRecords
	}
	if q.simple == nil {
		q.simple = &line
		return nil
	}
	joined := *q.simple + "\n" + line
	q.simple = &joined
	return nil
}

func (q *Question) addRecord() error {
	if q.simple != nil {
		return errRecordAfterSimple
	}
	rec := AnswerRecord{}
	q.records = append(q.records, rec)
	q.last = rec
	return nil
}

func (q *Question) setField(key, value string) error {
	if q.last == nil {
		if err := q.addRecord(); err != nil {
			return err
		}
	}
	q.last[key] = value
	return nil
}

func (q *Question) String() string {
	var body string
	if q.simple != nil {
		body = *q.simple
	} else {
		rows := make([]string, 0, len(q.records))
		for _, rec := range q.records {
			keys := make([]string, 0, len(rec))
			for k := range rec {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			pairs := make([]string, 0, len(keys))
			for _, k := range keys {
				pairs = append(pairs, fmt.Sprintf("%s: %s", k, rec[k]))
			}
			rows = append(rows, strings.Join(pairs, ", "))
		}
		body = strings.Join(rows, "\n")
	}
	return fmt.Sprintf("= QUESTION: %s =\n%s\n", q.Label, body)
}

// defaultQuestionLabel names the question created lazily when a value phrase
// arrives before any explicit question heading.
const defaultQuestionLabel = "Details"

// Section groups the questions under one section banner. The current
// question is the last one added.
type Section struct {
	Label string

	questions map[string]*Question
	order     []*Question
	current   *Question
}

func newSection(label string) *Section {
	return &Section{
		Label:     label,
		questions: make(map[string]*Question),
	}
}

func (s *Section) addQuestion(label string) *Question {
	q := &Question{Label: label}
	s.questions[label] = q
	s.order = append(s.order, q)
	s.current = q
	return q
}

func (s *Section) currentQuestion() *Question {
	if s.current == nil {
		s.addQuestion(defaultQuestionLabel)
	}
	return s.current
}

// QuestionByLabel looks up a question by its heading text.
func (s *Section) QuestionByLabel(label string) (*Question, bool) {
	q, ok := s.questions[label]
	return q, ok
}

// Questions returns the section's questions in the order they were opened.
func (s *Section) Questions() []*Question {
	return s.order
}

func (s *Section) String() string {
	parts := make([]string, 0, len(s.order))
	for _, q := range s.order {
		parts = append(parts, q.String())
	}
	return fmt.Sprintf("== SECTION: %s ==\n%s\n\n", s.Label, strings.Join(parts, "\n"))
}

// Document is the reconstructed form: sections in the order encountered.
// It is immutable once the structuring pass has returned it.
type Document struct {
	Sections []*Section
}

// Section returns the section at the given index, or nil when out of range.
func (d *Document) Section(i int) *Section {
	if i < 0 || i >= len(d.Sections) {
		return nil
	}
	return d.Sections[i]
}

// Property returns the named field from the first answer record of a
// question, or "" when the section, question, record or field is absent.
func (d *Document) Property(section int, question, field string) string {
	q := d.question(section, question)
	if q == nil || len(q.records) == 0 {
		return ""
	}
	return q.records[0][field]
}

// SimpleAnswer returns a question's free-text answer, or "" when absent.
func (d *Document) SimpleAnswer(section int, question string) string {
	q := d.question(section, question)
	if q == nil {
		return ""
	}
	answer, _ := q.SimpleAnswer()
	return answer
}

// Records returns all answer records of a question, or nil when absent.
func (d *Document) Records(section int, question string) []AnswerRecord {
	q := d.question(section, question)
	if q == nil {
		return nil
	}
	return q.records
}

func (d *Document) question(section int, label string) *Question {
	s := d.Section(section)
	if s == nil {
		return nil
	}
	return s.questions[label]
}

func (d *Document) String() string {
	var b strings.Builder
	for _, s := range d.Sections {
		b.WriteString(s.String())
	}
	return b.String()
}
