package survey

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// ValidateForSave checks the invariants a survey must hold before it may be
// created or activated. Every violation is collected and returned together,
// never fail-fast, so an editing surface can mark all problems in one pass.
// Returns nil when the survey is saveable.
func ValidateForSave(s Survey) error {
	var errs *multierror.Error

	if strings.TrimSpace(s.Title) == "" {
		errs = multierror.Append(errs, &ValidationError{
			Field:   "title",
			Message: "title is required",
		})
	}
	if len(s.Questions) == 0 {
		errs = multierror.Append(errs, &ValidationError{
			Field:   "questions",
			Message: "at least one question is required",
		})
	}

	for i, q := range s.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if strings.TrimSpace(q.Text) == "" {
			errs = multierror.Append(errs, &ValidationError{
				Field:   field + ".text",
				Message: "question text is required",
			})
		}
		if q.Type.NeedsOptions() && countNonEmpty(q.Options) < 2 {
			errs = multierror.Append(errs, &ValidationError{
				Field:   field + ".options",
				Message: "at least 2 options are required",
			})
		}
	}

	return errs.ErrorOrNil()
}

func countNonEmpty(options []string) (n int) {
	for _, opt := range options {
		if strings.TrimSpace(opt) != "" {
			n++
		}
	}
	return
}

// Problems flattens an error returned by ValidateForSave into one message
// per violation, fit for a response body. A nil error yields nil.
func Problems(err error) []string {
	if err == nil {
		return nil
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		return []string{err.Error()}
	}
	msgs := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
