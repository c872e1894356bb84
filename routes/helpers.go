package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mbolis/survey-portal/survey"
)

var validate = validator.New()

// validationProblems flattens validator field errors into one message per
// violation, mirroring the shape of survey.Problems.
func validationProblems(err error) []string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	problems := make([]string, 0, len(errs))
	for _, fe := range errs {
		problems = append(problems, fe.Field()+": failed "+fe.Tag())
	}
	return problems
}

func urlParamId(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "id"))
}

// pageParams reads page/per_page query parameters, falling back to page 1
// and the configured default page size.
func pageParams(r *http.Request, defaultPerPage int) (page, perPage, offset int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}
	offset = (page - 1) * perPage
	return
}

func pageCount(total, perPage int) int {
	return (total + perPage - 1) / perPage
}

const surveyColumns = `
	s.id, s.title, s.description, s.questions_json, s.is_active,
	s.created_at, s.updated_at,
	(SELECT COUNT(*) FROM survey_responses r WHERE r.survey_id = s.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSurvey(row rowScanner) (s survey.Survey, err error) {
	var questionsJSON string
	err = row.Scan(
		&s.ID, &s.Title, &s.Description, &questionsJSON, &s.Active,
		&s.CreatedAt, &s.UpdatedAt,
		&s.ResponsesCount,
	)
	if err != nil {
		return
	}
	s.Questions = survey.ParseQuestions([]byte(questionsJSON))
	return
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
