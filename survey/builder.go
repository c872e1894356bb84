package survey

import (
	"strings"
	"sync/atomic"
	"time"
)

// Builder accumulates edits to a survey before it is sent to storage.
// All question lookups are by transient id; edits addressing an unknown
// question or an out-of-range option index are no-ops rather than errors,
// so a stale edit event cannot crash an authoring session.
type Builder struct {
	Survey Survey
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Edit resumes authoring over an existing survey.
func Edit(s Survey) *Builder {
	return &Builder{Survey: s}
}

var lastTransientID int64

// mintTransientID returns ids that are unique within the process and
// roughly millisecond-ordered. They are opaque tokens: nothing may rely
// on their ordering.
func mintTransientID() TransientID {
	now := time.Now().UnixMilli()
	for {
		last := atomic.LoadInt64(&lastTransientID)
		next := now
		if next <= last {
			next = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTransientID, last, next) {
			return TransientID(next)
		}
	}
}

// AddQuestion appends a question with a freshly minted transient id.
func (b *Builder) AddQuestion(text string, typ QuestionType, required bool, options []string) (TransientID, error) {
	if strings.TrimSpace(text) == "" {
		return 0, &ValidationError{Field: "text", Message: "question text is required"}
	}
	if !typ.Valid() {
		return 0, &ValidationError{Field: "type", Message: "unknown question type " + string(typ)}
	}
	q := Question{
		ID:       mintTransientID(),
		Text:     text,
		Type:     typ,
		Required: required,
		Options:  []string{},
	}
	if typ.NeedsOptions() && options != nil {
		q.Options = append(q.Options, options...)
	}
	b.Survey.Questions = append(b.Survey.Questions, q)
	return q.ID, nil
}

// RemoveQuestion drops the question with the given id.
func (b *Builder) RemoveQuestion(id TransientID) {
	qs := b.Survey.Questions
	for i := range qs {
		if qs[i].ID == id {
			b.Survey.Questions = append(qs[:i], qs[i+1:]...)
			return
		}
	}
}

// SetText replaces the question prompt.
func (b *Builder) SetText(id TransientID, text string) {
	if q := b.question(id); q != nil {
		q.Text = text
	}
}

// SetRequired flags or unflags the question as mandatory.
func (b *Builder) SetRequired(id TransientID, required bool) {
	if q := b.question(id); q != nil {
		q.Required = required
	}
}

// SetQuestionType changes the question type. Switching to a type that does
// not carry options discards any previously entered options. That data loss
// is intentional: options entered for a radio question do not survive a trip
// through the text type.
func (b *Builder) SetQuestionType(id TransientID, typ QuestionType) {
	q := b.question(id)
	if q == nil || !typ.Valid() {
		return
	}
	q.Type = typ
	if !typ.NeedsOptions() {
		q.Options = []string{}
	}
}

// AddOption appends an empty option for the author to fill in.
func (b *Builder) AddOption(id TransientID) {
	if q := b.question(id); q != nil {
		q.Options = append(q.Options, "")
	}
}

// UpdateOption replaces the option text at index.
func (b *Builder) UpdateOption(id TransientID, index int, value string) {
	q := b.question(id)
	if q == nil || index < 0 || index >= len(q.Options) {
		return
	}
	q.Options[index] = value
}

// RemoveOption deletes the option at index.
func (b *Builder) RemoveOption(id TransientID, index int) {
	q := b.question(id)
	if q == nil || index < 0 || index >= len(q.Options) {
		return
	}
	q.Options = append(q.Options[:index], q.Options[index+1:]...)
}

func (b *Builder) question(id TransientID) *Question {
	qs := b.Survey.Questions
	for i := range qs {
		if qs[i].ID == id {
			return &qs[i]
		}
	}
	return nil
}
