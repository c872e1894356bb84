// Package collect tracks a respondent's in-progress answers to a survey,
// enforces the required-question invariant and produces the submission
// payload the storage boundary expects.
package collect

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mbolis/survey-portal/survey"
)

// Answer is one question's value within a response. The concrete variant is
// discriminated by the paired question's type, which spares validation and
// aggregation any runtime shape-sniffing. An empty value stands for
// "unanswered": the empty string, the empty set, or an absent rating.
type Answer interface {
	Empty() bool
}

// Text is a free-form answer to a text question.
type Text string

func (t Text) Empty() bool { return t == "" }

// Choice is the single selection of a radio or select question.
type Choice string

func (c Choice) Empty() bool { return c == "" }

// MultiChoice is the selection set of a checkbox question.
type MultiChoice map[string]struct{}

func (m MultiChoice) Empty() bool { return len(m) == 0 }

// Has reports whether option is currently selected.
func (m MultiChoice) Has(option string) bool {
	_, ok := m[option]
	return ok
}

// Values lists the selections in the given option order, with any selection
// not among the offered options (stale data) sorted at the end. Sets carry
// no order of their own; this keeps the payload deterministic.
func (m MultiChoice) Values(options []string) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, opt := range options {
		if m.Has(opt) && !seen[opt] {
			out = append(out, opt)
			seen[opt] = true
		}
	}
	var stale []string
	for v := range m {
		if !seen[v] {
			stale = append(stale, v)
		}
	}
	sort.Strings(stale)
	return append(out, stale...)
}

// Rating is a 1-5 score. Values below 1 mean unanswered.
type Rating int

func (r Rating) Empty() bool { return r < 1 }

// Toggle returns the selection set after checking or unchecking one option.
// Checking an already-present option is idempotent. The input set is not
// mutated.
func Toggle(set MultiChoice, option string, checked bool) MultiChoice {
	out := make(MultiChoice, len(set)+1)
	for v := range set {
		out[v] = struct{}{}
	}
	if checked {
		out[option] = struct{}{}
	} else {
		delete(out, option)
	}
	return out
}

// Decode interprets a raw wire value as an answer to the given question.
// Values of unexpected shape degrade to the empty answer for the question's
// type; stale scalar values are preserved under their literal string.
func Decode(q survey.Question, raw any) Answer {
	switch q.Type {
	case survey.TypeCheckbox:
		set := MultiChoice{}
		switch items := raw.(type) {
		case []any:
			for _, item := range items {
				if s := scalarString(item); s != "" {
					set[s] = struct{}{}
				}
			}
		case []string:
			for _, s := range items {
				if s != "" {
					set[s] = struct{}{}
				}
			}
		}
		return set

	case survey.TypeRating:
		switch v := raw.(type) {
		case float64:
			return Rating(int(v))
		case int:
			return Rating(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return Rating(n)
			}
		}
		return Rating(0)

	case survey.TypeRadio, survey.TypeSelect:
		return Choice(scalarString(raw))

	default:
		return Text(scalarString(raw))
	}
}

func scalarString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
