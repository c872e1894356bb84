package survey

import (
	"encoding/json"
	"time"
)

// wireSurvey is the storage boundary's shape of a survey. Servers may return
// the question list either inline under "questions" or JSON-encoded as a
// string under "questions_json"; legacy or partially written records may
// carry neither, or carry garbage.
type wireSurvey struct {
	ID             int             `json:"id,omitempty"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Active         bool            `json:"is_active"`
	Questions      json.RawMessage `json:"questions,omitempty"`
	QuestionsJSON  string          `json:"questions_json,omitempty"`
	CreatedAt      *time.Time      `json:"created_at,omitempty"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
	ResponsesCount int             `json:"responses_count,omitempty"`
}

// Serialize renders a survey in the storage boundary's representation.
func Serialize(s Survey) ([]byte, error) {
	questions, err := json.Marshal(questionsOrEmpty(s.Questions))
	if err != nil {
		return nil, err
	}
	w := wireSurvey{
		ID:             s.ID,
		Title:          s.Title,
		Description:    s.Description,
		Active:         s.Active,
		Questions:      questions,
		ResponsesCount: s.ResponsesCount,
	}
	if !s.CreatedAt.IsZero() {
		created := s.CreatedAt
		w.CreatedAt = &created
	}
	if !s.UpdatedAt.IsZero() {
		updated := s.UpdatedAt
		w.UpdatedAt = &updated
	}
	return json.Marshal(w)
}

// Deserialize parses a survey record from the storage boundary. A missing or
// unreadable question list degrades to an empty one rather than failing, so
// malformed legacy records still load.
func Deserialize(blob []byte) (Survey, error) {
	var w wireSurvey
	if err := json.Unmarshal(blob, &w); err != nil {
		return Survey{}, err
	}

	s := Survey{
		ID:             w.ID,
		Title:          w.Title,
		Description:    w.Description,
		Active:         w.Active,
		ResponsesCount: w.ResponsesCount,
	}
	if w.CreatedAt != nil {
		s.CreatedAt = *w.CreatedAt
	}
	if w.UpdatedAt != nil {
		s.UpdatedAt = *w.UpdatedAt
	}

	if len(w.Questions) > 0 {
		s.Questions = ParseQuestions(w.Questions)
	} else {
		s.Questions = ParseQuestions([]byte(w.QuestionsJSON))
	}
	return s, nil
}

// ParseQuestions decodes a stored question list, yielding an empty slice for
// missing or malformed data.
func ParseQuestions(blob []byte) []Question {
	if len(blob) == 0 {
		return []Question{}
	}
	var questions []Question
	if err := json.Unmarshal(blob, &questions); err != nil || questions == nil {
		return []Question{}
	}
	return questions
}

// EncodeQuestions renders a question list for storage in a questions_json
// column.
func EncodeQuestions(questions []Question) (string, error) {
	blob, err := json.Marshal(questionsOrEmpty(questions))
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

func questionsOrEmpty(questions []Question) []Question {
	if questions == nil {
		return []Question{}
	}
	return questions
}
