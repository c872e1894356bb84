// Package survey defines the survey schema shared by the builder, the
// response collector and the statistics aggregator.
package survey

import (
	"fmt"
	"strconv"
	"time"
)

// QuestionType enumerates the kinds of prompt a survey can contain.
type QuestionType string

const (
	TypeText     QuestionType = "text"
	TypeRadio    QuestionType = "radio"
	TypeCheckbox QuestionType = "checkbox"
	TypeSelect   QuestionType = "select"
	TypeRating   QuestionType = "rating"
)

// Valid reports whether t is one of the known question types.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeText, TypeRadio, TypeCheckbox, TypeSelect, TypeRating:
		return true
	}
	return false
}

// NeedsOptions reports whether answers to this type are drawn from an
// option list. Select is semantically a radio presented as a dropdown.
func (t QuestionType) NeedsOptions() bool {
	switch t {
	case TypeRadio, TypeCheckbox, TypeSelect:
		return true
	}
	return false
}

// TransientID identifies a question while its survey is being authored.
// It is minted on the client and carries no meaning after a save round-trip:
// once persisted, the stored id is the source of truth.
type TransientID int64

// QuestionID is the key a question is known by in response maps and wire
// payloads.
type QuestionID string

// Key is the only bridge from an authoring-time id to a response key.
func (id TransientID) Key() QuestionID {
	return QuestionID(strconv.FormatInt(int64(id), 10))
}

type Question struct {
	ID       TransientID  `json:"id,omitempty"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Required bool         `json:"required"`
	Options  []string     `json:"options"`
}

// Key returns the id this question's answers are stored under.
func (q Question) Key() QuestionID {
	return q.ID.Key()
}

type Survey struct {
	ID             int        `json:"id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Active         bool       `json:"is_active"`
	Questions      []Question `json:"questions"`
	CreatedAt      time.Time  `json:"created_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at,omitempty"`
	ResponsesCount int        `json:"responses_count,omitempty"`
}

// ValidationError reports a single schema or answer invariant violation.
// Violations are returned as data, collected, so a caller can surface every
// problem at once.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
