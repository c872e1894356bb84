package routes

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/gofrs/uuid"
	"github.com/mbolis/survey-portal/app"
	"github.com/mbolis/survey-portal/collect"
	"github.com/mbolis/survey-portal/httpx"
	"github.com/mbolis/survey-portal/log"
	"github.com/mbolis/survey-portal/routes/middlewares"
	"github.com/mbolis/survey-portal/survey"
)

func ActiveSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT `+surveyColumns+`
			FROM surveys s
			WHERE s.is_active = 1
			ORDER BY s.created_at DESC`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_active_surveys", err)
			return
		}
		defer rows.Close()

		surveys := []survey.Survey{}
		for rows.Next() {
			s, err := scanSurvey(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_active_surveys.scan", err)
				return
			}
			surveys = append(surveys, s)
		}

		if len(surveys) == 0 {
			httpx.LogErrorJSON(w, http.StatusNotFound, log.DebugLevel, "get_active_surveys", "no active surveys found")
			return
		}
		render.JSON(w, r, surveys)
	}
}

func FirstActiveSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row := app.QueryRowContext(r.Context(), `
			SELECT `+surveyColumns+`
			FROM surveys s
			WHERE s.is_active = 1
			ORDER BY s.created_at DESC
			LIMIT 1`)

		s, err := scanSurvey(row)
		if isNoRows(err) {
			httpx.LogErrorJSON(w, http.StatusNotFound, log.DebugLevel, "get_first_active_survey", "no active survey found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_first_active_survey", err)
			return
		}
		render.JSON(w, r, s)
	}
}

func PublicSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		row := app.QueryRowContext(r.Context(), `
			SELECT `+surveyColumns+`
			FROM surveys s
			WHERE s.id = ? AND s.is_active = 1`,
			surveyId,
		)

		s, err := scanSurvey(row)
		if isNoRows(err) {
			httpx.LogNotFound(w, "get_public_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_public_survey", err)
			return
		}
		render.JSON(w, r, s)
	}
}

func SubmitResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		submission := collect.Submission{}
		err = render.DecodeJSON(r.Body, &submission)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if len(submission.Responses) == 0 {
			httpx.LogErrorJSON(w, http.StatusBadRequest, log.DebugLevel, "submit.responses", "responses are required")
			return
		}

		row := app.QueryRowContext(r.Context(), `
			SELECT `+surveyColumns+`
			FROM surveys s
			WHERE s.id = ? AND s.is_active = 1`,
			surveyId,
		)
		s, err := scanSurvey(row)
		if isNoRows(err) {
			httpx.LogNotFound(w, "submit.get_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.submit.get_survey", err)
			return
		}

		// required questions must carry a usable answer
		answers := collect.Answers{}
		for _, q := range s.Questions {
			if raw, ok := submission.Responses[string(q.Key())]; ok {
				answers.Set(q.Key(), collect.Decode(q, raw))
			}
		}
		if failing := collect.Validate(s, answers); len(failing) > 0 {
			log.Debugf("submit.validate: %v", failing)
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, map[string]any{
				"error":     "required questions unanswered",
				"questions": failing,
			})
			return
		}

		responsesJson, err := json.Marshal(submission.Responses)
		if err != nil {
			httpx.LogInternalError(w, "submit.encode_responses", err)
			return
		}

		// submitter identity is optional: anonymous responses are allowed
		var userId *int
		if session, ok := middlewares.SessionFrom(r.Context()); ok {
			userId = &session.UserID
		}
		ip := strings.Split(r.RemoteAddr, ":")[0]
		if forwarded := r.Header.Get("x-forwarded-for"); forwarded != "" {
			ip = strings.TrimSpace(strings.Split(forwarded, ",")[0])
		}

		var responseId int
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO survey_responses (survey_id, user_id, responses_json, submitted_at, ip_address)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id`,
			surveyId,
			userId,
			string(responsesJson),
			time.Now(),
			ip,
		).Scan(&responseId)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_response", err)
			return
		}

		receipt, err := uuid.NewV4()
		if err != nil {
			httpx.LogInternalError(w, "submit.receipt", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message":     "survey response submitted successfully",
			"response_id": responseId,
			"receipt":     receipt.String(),
		})
	}
}
