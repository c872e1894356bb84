// Package stats derives per-question summaries from a survey schema and the
// full collection of its submitted responses. Aggregation is a pure function
// of its inputs: it performs no I/O, keeps no state, and identical inputs
// always yield identical output.
package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mbolis/survey-portal/collect"
	"github.com/mbolis/survey-portal/model"
	"github.com/mbolis/survey-portal/survey"
)

// Report is the survey-level statistics shape served by the storage boundary.
// It is recomputed on demand, never persisted: replaying Aggregate over the
// stored responses must always reproduce it.
type Report struct {
	Survey                 survey.Survey                `json:"survey"`
	TotalResponses         int                          `json:"total_responses"`
	TotalQuestions         int                          `json:"total_questions"`
	RequiredQuestions      int                          `json:"required_questions"`
	OptionalQuestions      int                          `json:"optional_questions"`
	CompletionPercentage   float64                      `json:"completion_percentage"`
	TotalAnsweredQuestions int                          `json:"total_answered_questions"`
	TotalPossibleAnswers   int                          `json:"total_possible_answers"`
	Statistics             map[string]QuestionStatistic `json:"statistics"`
}

// QuestionStatistic summarizes all answers to one question. Exactly one of
// the type-specific payloads is populated, matching the question's type.
type QuestionStatistic struct {
	Question      survey.Question `json:"question"`
	Responses     []any           `json:"responses"`
	AnsweredCount int             `json:"answered_count"`
	ResponseRate  float64         `json:"response_rate"`
	TextResponses []string        `json:"text_responses,omitempty"`
	OptionCounts  map[string]int  `json:"option_counts,omitempty"`
	RatingCounts  map[string]int  `json:"rating_counts,omitempty"`
	AverageRating *float64        `json:"average_rating,omitempty"`
}

// Aggregate computes the statistics report for a survey over all of its
// responses. Questions are keyed question_<i> in declaration order. Answered
// values never offered as options are still counted under their literal
// string.
func Aggregate(s survey.Survey, responses []model.Response) Report {
	report := Report{
		Survey:               s,
		TotalResponses:       len(responses),
		TotalQuestions:       len(s.Questions),
		TotalPossibleAnswers: len(responses) * len(s.Questions),
		Statistics:           make(map[string]QuestionStatistic, len(s.Questions)),
	}
	for _, q := range s.Questions {
		if q.Required {
			report.RequiredQuestions++
		}
	}
	report.OptionalQuestions = report.TotalQuestions - report.RequiredQuestions

	for i, q := range s.Questions {
		qs := aggregateQuestion(q, responses)
		report.TotalAnsweredQuestions += qs.AnsweredCount
		report.Statistics[fmt.Sprintf("question_%d", i)] = qs
	}

	if report.TotalPossibleAnswers > 0 {
		ratio := float64(report.TotalAnsweredQuestions) / float64(report.TotalPossibleAnswers)
		report.CompletionPercentage = round2(ratio * 100)
	}
	return report
}

func aggregateQuestion(q survey.Question, responses []model.Response) QuestionStatistic {
	qs := QuestionStatistic{
		Question:  q,
		Responses: []any{},
	}

	var answers []collect.Answer
	for _, r := range responses {
		raw, ok := r.Answers[string(q.Key())]
		if !ok {
			continue
		}
		answer := collect.Decode(q, raw)
		if answer.Empty() {
			continue
		}
		qs.Responses = append(qs.Responses, raw)
		qs.AnsweredCount++
		answers = append(answers, answer)
	}

	if len(responses) > 0 {
		qs.ResponseRate = float64(qs.AnsweredCount) / float64(len(responses)) * 100
	}

	switch q.Type {
	case survey.TypeText:
		qs.TextResponses = textAnswers(answers)

	case survey.TypeRadio, survey.TypeSelect:
		counts := map[string]int{}
		for _, answer := range answers {
			counts[string(answer.(collect.Choice))]++
		}
		qs.OptionCounts = counts

	case survey.TypeCheckbox:
		// a single response increments every option it selected
		counts := map[string]int{}
		for _, answer := range answers {
			set := answer.(collect.MultiChoice)
			for _, option := range set.Values(q.Options) {
				counts[option]++
			}
		}
		qs.OptionCounts = counts

	case survey.TypeRating:
		if len(answers) > 0 {
			counts := map[string]int{}
			sum := 0
			for _, answer := range answers {
				rating := int(answer.(collect.Rating))
				counts[strconv.Itoa(rating)]++
				sum += rating
			}
			qs.RatingCounts = counts
			average := float64(sum) / float64(len(answers))
			qs.AverageRating = &average
		}
	}

	return qs
}

// textAnswers keeps the literal answers in response order, dropping
// whitespace-only entries; no deduplication.
func textAnswers(answers []collect.Answer) []string {
	texts := make([]string, 0, len(answers))
	for _, answer := range answers {
		if text := string(answer.(collect.Text)); strings.TrimSpace(text) != "" {
			texts = append(texts, text)
		}
	}
	return texts
}

// OverallCompletion averages, across all responses, the fraction of required
// questions each response answered, as a percentage. It is the survey-level
// completion metric, distinct from per-question response rates. With no
// responses it is 0; with no required questions every response counts as
// complete.
func OverallCompletion(s survey.Survey, responses []model.Response) float64 {
	if len(responses) == 0 {
		return 0
	}

	var required []survey.Question
	for _, q := range s.Questions {
		if q.Required {
			required = append(required, q)
		}
	}
	if len(required) == 0 {
		return 100
	}

	sum := 0.0
	for _, r := range responses {
		answered := 0
		for _, q := range required {
			if raw, ok := r.Answers[string(q.Key())]; ok && !collect.Decode(q, raw).Empty() {
				answered++
			}
		}
		sum += float64(answered) / float64(len(required))
	}
	return sum / float64(len(responses)) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
