package collect

import (
	"fmt"

	"github.com/mbolis/survey-portal/survey"
)

// Answers maps question ids to the respondent's current answers. Keys are
// order-independent; iterate the survey's question list when order matters.
type Answers map[survey.QuestionID]Answer

// Init seeds one empty answer slot per question, so a response carries
// exactly one entry per question even when left blank.
func Init(s survey.Survey) Answers {
	answers := make(Answers, len(s.Questions))
	for _, q := range s.Questions {
		answers[q.Key()] = emptyFor(q.Type)
	}
	return answers
}

func emptyFor(t survey.QuestionType) Answer {
	switch t {
	case survey.TypeCheckbox:
		return MultiChoice{}
	case survey.TypeRating:
		return Rating(0)
	case survey.TypeRadio, survey.TypeSelect:
		return Choice("")
	default:
		return Text("")
	}
}

// Set replaces the answer for a question. Checkbox callers pass the full
// resulting set; derive it with Toggle.
func (a Answers) Set(id survey.QuestionID, answer Answer) {
	a[id] = answer
}

// Validate returns the ids of required questions whose answer is empty or
// absent, in survey order, so every invalid field can be marked at once.
// An empty result means the answers are submittable.
func Validate(s survey.Survey, a Answers) []survey.QuestionID {
	var failing []survey.QuestionID
	for _, q := range s.Questions {
		if !q.Required {
			continue
		}
		answer, ok := a[q.Key()]
		if !ok || answer == nil || answer.Empty() {
			failing = append(failing, q.Key())
		}
	}
	return failing
}

// Submission is the payload shape of the response-collection endpoint.
type Submission struct {
	Responses map[string]any `json:"responses"`
}

// PreconditionError reports a component call made out of its required order.
// It marks an integration defect, not a user-facing condition.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Finalize produces the submission payload for the given answers. It may
// only be called once Validate reports no failures; calling it earlier is a
// programming error and fails with a PreconditionError. An answer whose
// variant does not match its question's type is a ValidationError.
func Finalize(s survey.Survey, a Answers) (Submission, error) {
	if failing := Validate(s, a); len(failing) > 0 {
		return Submission{}, &PreconditionError{
			Op:     "finalize",
			Reason: fmt.Sprintf("%d required question(s) unanswered", len(failing)),
		}
	}

	responses := make(map[string]any, len(s.Questions))
	for _, q := range s.Questions {
		answer, ok := a[q.Key()]
		if !ok || answer == nil {
			answer = emptyFor(q.Type)
		}

		key := string(q.Key())
		switch v := answer.(type) {
		case Text:
			if q.Type != survey.TypeText {
				return Submission{}, typeMismatch(q, answer)
			}
			responses[key] = string(v)
		case Choice:
			if q.Type != survey.TypeRadio && q.Type != survey.TypeSelect {
				return Submission{}, typeMismatch(q, answer)
			}
			responses[key] = string(v)
		case MultiChoice:
			if q.Type != survey.TypeCheckbox {
				return Submission{}, typeMismatch(q, answer)
			}
			responses[key] = v.Values(q.Options)
		case Rating:
			if q.Type != survey.TypeRating {
				return Submission{}, typeMismatch(q, answer)
			}
			if v.Empty() {
				// an absent rating is how "unanswered" is spelled on the wire
				responses[key] = ""
			} else {
				responses[key] = int(v)
			}
		default:
			return Submission{}, typeMismatch(q, answer)
		}
	}
	return Submission{Responses: responses}, nil
}

func typeMismatch(q survey.Question, answer Answer) error {
	return &survey.ValidationError{
		Field:   string(q.Key()),
		Message: fmt.Sprintf("answer %T does not fit a %s question", answer, q.Type),
	}
}
