package stats

import (
	"sort"
	"strconv"

	"github.com/mbolis/survey-portal/survey"
)

// CountRow is one line of a rendered frequency table.
type CountRow struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// OptionRows returns the option table in a stable presentation order:
// declared options first, then any stale values sorted after them. The
// underlying count map is unordered; presentation must not depend on its
// iteration order.
//
// The percentage denominator differs by question type: checkbox rows are
// measured against all responses (a response can select several options),
// single-choice rows against this question's answered count.
func (qs QuestionStatistic) OptionRows(totalResponses int) []CountRow {
	denominator := qs.AnsweredCount
	if qs.Question.Type == survey.TypeCheckbox {
		denominator = totalResponses
	}

	rows := make([]CountRow, 0, len(qs.OptionCounts))
	seen := make(map[string]bool, len(qs.OptionCounts))
	for _, option := range qs.Question.Options {
		if seen[option] {
			continue
		}
		seen[option] = true
		if count, ok := qs.OptionCounts[option]; ok {
			rows = append(rows, countRow(option, count, denominator))
		}
	}

	var stale []string
	for value := range qs.OptionCounts {
		if !seen[value] {
			stale = append(stale, value)
		}
	}
	sort.Strings(stale)
	for _, value := range stale {
		rows = append(rows, countRow(value, qs.OptionCounts[value], denominator))
	}
	return rows
}

// RatingRows returns the rating table on the fixed ascending 1-5 scale,
// including zero-count rows, measured against the answered count.
func (qs QuestionStatistic) RatingRows() []CountRow {
	rows := make([]CountRow, 0, 5)
	for rating := 1; rating <= 5; rating++ {
		label := strconv.Itoa(rating)
		rows = append(rows, countRow(label, qs.RatingCounts[label], qs.AnsweredCount))
	}
	return rows
}

func countRow(label string, count, denominator int) CountRow {
	row := CountRow{Label: label, Count: count}
	if denominator > 0 {
		row.Percent = round2(float64(count) / float64(denominator) * 100)
	}
	return row
}
