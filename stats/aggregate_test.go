package stats

import (
	"math"
	"reflect"
	"testing"

	"github.com/mbolis/survey-portal/model"
	"github.com/mbolis/survey-portal/survey"
)

func respond(answers map[string]any) model.Response {
	return model.Response{Answers: answers}
}

func TestAggregateRadio(t *testing.T) {
	s := survey.Survey{
		Title: "Poll",
		Questions: []survey.Question{
			{ID: 1, Text: "Agree?", Type: survey.TypeRadio, Options: []string{"Yes", "No"}},
		},
	}
	responses := []model.Response{
		respond(map[string]any{"1": "Yes"}),
		respond(map[string]any{"1": "Yes"}),
		respond(map[string]any{"1": "No"}),
	}

	report := Aggregate(s, responses)
	qs := report.Statistics["question_0"]

	if qs.AnsweredCount != 3 {
		t.Errorf("answered_count = %d, want 3", qs.AnsweredCount)
	}
	if qs.ResponseRate != 100 {
		t.Errorf("response_rate = %v, want 100", qs.ResponseRate)
	}
	if want := map[string]int{"Yes": 2, "No": 1}; !reflect.DeepEqual(qs.OptionCounts, want) {
		t.Errorf("option_counts = %v, want %v", qs.OptionCounts, want)
	}
}

func TestAggregateZeroResponses(t *testing.T) {
	s := survey.Survey{
		Title: "Empty",
		Questions: []survey.Question{
			{ID: 1, Text: "Rate", Type: survey.TypeRating, Required: true},
			{ID: 2, Text: "Pick", Type: survey.TypeRadio, Options: []string{"A", "B"}},
		},
	}

	report := Aggregate(s, nil)

	if report.TotalResponses != 0 || report.CompletionPercentage != 0 {
		t.Errorf("totals = %d/%v, want 0/0", report.TotalResponses, report.CompletionPercentage)
	}
	for key, qs := range report.Statistics {
		if qs.ResponseRate != 0 {
			t.Errorf("%s response_rate = %v, want 0", key, qs.ResponseRate)
		}
	}
	if avg := report.Statistics["question_0"].AverageRating; avg != nil {
		t.Errorf("average_rating = %v, want absent", *avg)
	}
	if OverallCompletion(s, nil) != 0 {
		t.Error("OverallCompletion with no responses must be 0")
	}
}

func TestAggregateCheckboxCountsPerOption(t *testing.T) {
	s := survey.Survey{
		Title: "Multi",
		Questions: []survey.Question{
			{ID: 1, Text: "Pick some", Type: survey.TypeCheckbox, Options: []string{"A", "B", "C"}},
		},
	}
	responses := []model.Response{
		respond(map[string]any{"1": []any{"A", "B"}}),
		respond(map[string]any{"1": []any{"B"}}),
		respond(map[string]any{"1": []any{}}),
	}

	report := Aggregate(s, responses)
	qs := report.Statistics["question_0"]

	if qs.AnsweredCount != 2 {
		t.Errorf("answered_count = %d, want 2 (empty set is unanswered)", qs.AnsweredCount)
	}
	if want := map[string]int{"A": 1, "B": 2}; !reflect.DeepEqual(qs.OptionCounts, want) {
		t.Errorf("option_counts = %v, want %v", qs.OptionCounts, want)
	}
}

func TestAggregateRating(t *testing.T) {
	s := survey.Survey{
		Title: "Score",
		Questions: []survey.Question{
			{ID: 1, Text: "Rate us", Type: survey.TypeRating},
		},
	}
	responses := []model.Response{
		respond(map[string]any{"1": float64(5)}),
		respond(map[string]any{"1": float64(4)}),
		respond(map[string]any{"1": "5"}), // numeric strings count too
		respond(map[string]any{"1": ""}),  // unanswered
	}

	report := Aggregate(s, responses)
	qs := report.Statistics["question_0"]

	if qs.AnsweredCount != 3 {
		t.Fatalf("answered_count = %d, want 3", qs.AnsweredCount)
	}
	if want := map[string]int{"4": 1, "5": 2}; !reflect.DeepEqual(qs.RatingCounts, want) {
		t.Errorf("rating_counts = %v, want %v", qs.RatingCounts, want)
	}
	if qs.AverageRating == nil || math.Abs(*qs.AverageRating-14.0/3.0) > 1e-9 {
		t.Errorf("average_rating = %v, want 14/3", qs.AverageRating)
	}
}

func TestAggregateText(t *testing.T) {
	s := survey.Survey{
		Title: "Open",
		Questions: []survey.Question{
			{ID: 1, Text: "Thoughts?", Type: survey.TypeText},
		},
	}
	responses := []model.Response{
		respond(map[string]any{"1": "first"}),
		respond(map[string]any{"1": ""}),
		respond(map[string]any{"1": "second"}),
		respond(map[string]any{"1": "first"}), // duplicates are kept
	}

	report := Aggregate(s, responses)
	qs := report.Statistics["question_0"]

	if want := []string{"first", "second", "first"}; !reflect.DeepEqual(qs.TextResponses, want) {
		t.Errorf("text_responses = %v, want %v (response order, no dedup)", qs.TextResponses, want)
	}
	if qs.AnsweredCount != 3 {
		t.Errorf("answered_count = %d, want 3", qs.AnsweredCount)
	}
}

func TestAggregateStaleValues(t *testing.T) {
	s := survey.Survey{
		Title: "Drifted",
		Questions: []survey.Question{
			{ID: 1, Text: "Pick", Type: survey.TypeRadio, Options: []string{"Yes", "No"}},
		},
	}
	responses := []model.Response{
		respond(map[string]any{"1": "Maybe"}), // option no longer offered
		respond(map[string]any{"1": "Yes"}),
	}

	report := Aggregate(s, responses)
	qs := report.Statistics["question_0"]

	if want := map[string]int{"Yes": 1, "Maybe": 1}; !reflect.DeepEqual(qs.OptionCounts, want) {
		t.Errorf("option_counts = %v, want %v", qs.OptionCounts, want)
	}
}

func TestAggregateReportTotals(t *testing.T) {
	s := survey.Survey{
		Title: "Totals",
		Questions: []survey.Question{
			{ID: 1, Text: "A", Type: survey.TypeText, Required: true},
			{ID: 2, Text: "B", Type: survey.TypeText},
		},
	}
	responses := []model.Response{
		respond(map[string]any{"1": "x", "2": "y"}),
		respond(map[string]any{"1": "x", "2": ""}),
	}

	report := Aggregate(s, responses)

	if report.TotalQuestions != 2 || report.RequiredQuestions != 1 || report.OptionalQuestions != 1 {
		t.Errorf("question counts = %d/%d/%d", report.TotalQuestions, report.RequiredQuestions, report.OptionalQuestions)
	}
	if report.TotalPossibleAnswers != 4 || report.TotalAnsweredQuestions != 3 {
		t.Errorf("answers = %d/%d, want 3/4", report.TotalAnsweredQuestions, report.TotalPossibleAnswers)
	}
	if report.CompletionPercentage != 75 {
		t.Errorf("completion_percentage = %v, want 75", report.CompletionPercentage)
	}
}

func TestOverallCompletion(t *testing.T) {
	s := survey.Survey{
		Title: "Required",
		Questions: []survey.Question{
			{ID: 1, Text: "A", Type: survey.TypeText, Required: true},
			{ID: 2, Text: "B", Type: survey.TypeText, Required: true},
			{ID: 3, Text: "C", Type: survey.TypeText},
		},
	}
	responses := []model.Response{
		respond(map[string]any{"1": "x", "2": "y"}), // 100% of required
		respond(map[string]any{"1": "x", "2": ""}),  // 50% of required
	}

	if got := OverallCompletion(s, responses); got != 75 {
		t.Errorf("OverallCompletion() = %v, want 75", got)
	}

	noRequired := survey.Survey{
		Title:     "Optional only",
		Questions: []survey.Question{{ID: 1, Text: "A", Type: survey.TypeText}},
	}
	if got := OverallCompletion(noRequired, responses); got != 100 {
		t.Errorf("OverallCompletion() without required questions = %v, want 100", got)
	}
}

func TestAggregateIsPure(t *testing.T) {
	s := survey.Survey{
		Title: "Pure",
		Questions: []survey.Question{
			{ID: 1, Text: "Pick", Type: survey.TypeCheckbox, Options: []string{"A", "B"}},
			{ID: 2, Text: "Rate", Type: survey.TypeRating},
		},
	}
	responses := []model.Response{
		respond(map[string]any{"1": []any{"B", "A"}, "2": float64(3)}),
		respond(map[string]any{"1": []any{"A"}, "2": float64(4)}),
	}

	first := Aggregate(s, responses)
	second := Aggregate(s, responses)
	if !reflect.DeepEqual(first, second) {
		t.Error("Aggregate() must be deterministic for identical inputs")
	}
}

func TestOptionRows(t *testing.T) {
	s := survey.Survey{
		Title: "Rows",
		Questions: []survey.Question{
			{ID: 1, Text: "Pick some", Type: survey.TypeCheckbox, Options: []string{"B", "A"}},
			{ID: 2, Text: "Pick one", Type: survey.TypeRadio, Options: []string{"Yes", "No"}},
		},
	}
	responses := []model.Response{
		respond(map[string]any{"1": []any{"A", "B"}, "2": "Yes"}),
		respond(map[string]any{"1": []any{"A", "Gone"}, "2": ""}),
		respond(map[string]any{"1": []any{}, "2": "Yes"}),
		respond(map[string]any{"1": []any{}, "2": ""}),
	}

	report := Aggregate(s, responses)

	// checkbox percentages run against all responses
	checkbox := report.Statistics["question_0"].OptionRows(report.TotalResponses)
	wantCheckbox := []CountRow{
		{Label: "B", Count: 1, Percent: 25},
		{Label: "A", Count: 2, Percent: 50},
		{Label: "Gone", Count: 1, Percent: 25}, // stale, sorted after declared options
	}
	if !reflect.DeepEqual(checkbox, wantCheckbox) {
		t.Errorf("checkbox rows = %v, want %v", checkbox, wantCheckbox)
	}

	// single-choice percentages run against this question's answered count
	radio := report.Statistics["question_1"].OptionRows(report.TotalResponses)
	wantRadio := []CountRow{{Label: "Yes", Count: 2, Percent: 100}}
	if !reflect.DeepEqual(radio, wantRadio) {
		t.Errorf("radio rows = %v, want %v", radio, wantRadio)
	}
}

func TestRatingRows(t *testing.T) {
	s := survey.Survey{
		Title:     "Scale",
		Questions: []survey.Question{{ID: 1, Text: "Rate", Type: survey.TypeRating}},
	}
	responses := []model.Response{
		respond(map[string]any{"1": float64(5)}),
		respond(map[string]any{"1": float64(5)}),
		respond(map[string]any{"1": float64(2)}),
		respond(map[string]any{"1": ""}),
	}

	report := Aggregate(s, responses)
	rows := report.Statistics["question_0"].RatingRows()

	want := []CountRow{
		{Label: "1", Count: 0, Percent: 0},
		{Label: "2", Count: 1, Percent: 33.33},
		{Label: "3", Count: 0, Percent: 0},
		{Label: "4", Count: 0, Percent: 0},
		{Label: "5", Count: 2, Percent: 66.67},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rating rows = %v, want %v", rows, want)
	}
}
