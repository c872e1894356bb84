package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/mbolis/survey-portal/app"
	"github.com/mbolis/survey-portal/httpx"
	"github.com/mbolis/survey-portal/log"
	"github.com/mbolis/survey-portal/model"
	"github.com/mbolis/survey-portal/stats"
	"github.com/mbolis/survey-portal/survey"
)

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			httpx.LogInternalError(w, "request.read_body", err)
			return
		}
		s, err := survey.Deserialize(body)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		if err := survey.ValidateForSave(s); err != nil {
			httpx.LogValidationErrors(w, "create_survey.validate", survey.Problems(err))
			return
		}

		questionsJson, err := survey.EncodeQuestions(s.Questions)
		if err != nil {
			httpx.LogInternalError(w, "create_survey.encode_questions", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		// only one survey may be active at a time
		if s.Active {
			_, err = tx.ExecContext(r.Context(), "UPDATE surveys SET is_active = 0")
			if err != nil {
				httpx.LogInternalError(w, "db.insert_survey.deactivate_others", err)
				return
			}
		}

		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO surveys (title, description, questions_json, is_active)
			VALUES (?, ?, ?, ?)
			RETURNING id, created_at, updated_at`,
			s.Title,
			s.Description,
			questionsJson,
			s.Active,
		).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_survey", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_survey.commit", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, s)
	}
}

func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := app.QueryContext(r.Context(), `
			SELECT `+surveyColumns+`
			FROM surveys s
			ORDER BY s.created_at DESC`)
		if err != nil {
			httpx.LogInternalError(w, "db.get_surveys", err)
			return
		}
		defer rows.Close()

		surveys := []survey.Survey{}
		for rows.Next() {
			s, err := scanSurvey(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_surveys.scan", err)
				return
			}
			surveys = append(surveys, s)
		}

		render.JSON(w, r, surveys)
	}
}

func GetSurveyById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		s, err := fetchSurvey(r, app, surveyId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "get_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey", err)
			return
		}
		render.JSON(w, r, s)
	}
}

// updateSurveyRequest carries partial updates: absent fields keep their
// stored value.
type updateSurveyRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Active      *bool           `json:"is_active"`
	Questions   json.RawMessage `json:"questions"`
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := updateSurveyRequest{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		s, err := fetchSurvey(r, app, surveyId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "update_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.update_survey.get", err)
			return
		}

		if req.Title != nil {
			s.Title = *req.Title
		}
		if req.Description != nil {
			s.Description = *req.Description
		}
		if req.Active != nil {
			s.Active = *req.Active
		}
		if len(req.Questions) > 0 {
			s.Questions = survey.ParseQuestions(req.Questions)
		}

		if err := survey.ValidateForSave(s); err != nil {
			httpx.LogValidationErrors(w, "update_survey.validate", survey.Problems(err))
			return
		}

		questionsJson, err := survey.EncodeQuestions(s.Questions)
		if err != nil {
			httpx.LogInternalError(w, "update_survey.encode_questions", err)
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		if s.Active {
			_, err = tx.ExecContext(r.Context(),
				"UPDATE surveys SET is_active = 0 WHERE id != ?", surveyId)
			if err != nil {
				httpx.LogInternalError(w, "db.update_survey.deactivate_others", err)
				return
			}
		}

		s.UpdatedAt = time.Now()
		_, err = tx.ExecContext(r.Context(), `
			UPDATE surveys
			SET title = ?, description = ?, questions_json = ?, is_active = ?, updated_at = ?
			WHERE id = ?`,
			s.Title,
			s.Description,
			questionsJson,
			s.Active,
			s.UpdatedAt,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_survey", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.update_survey.commit", err)
			return
		}

		render.JSON(w, r, s)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(),
			"DELETE FROM surveys WHERE id = ?", surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_survey", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_survey.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_survey", surveyId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func ActivateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		s, err := fetchSurvey(r, app, surveyId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "activate_survey", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.activate_survey.get", err)
			return
		}

		// an empty survey must not go public
		if len(s.Questions) == 0 {
			httpx.LogErrorJSON(w, http.StatusBadRequest, log.DebugLevel, "activate_survey.questions",
				"survey has no questions")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(r.Context(), "UPDATE surveys SET is_active = 0")
		if err != nil {
			httpx.LogInternalError(w, "db.activate_survey.deactivate_all", err)
			return
		}
		_, err = tx.ExecContext(r.Context(),
			"UPDATE surveys SET is_active = 1 WHERE id = ?", surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.activate_survey", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.activate_survey.commit", err)
			return
		}

		s.Active = true
		render.JSON(w, r, s)
	}
}

func DeactivateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(),
			"UPDATE surveys SET is_active = 0 WHERE id = ?", surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.deactivate_survey", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.deactivate_survey.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "deactivate_survey", surveyId)
			return
		}

		s, err := fetchSurvey(r, app, surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.deactivate_survey.get", err)
			return
		}
		render.JSON(w, r, s)
	}
}

func GetSurveyResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		s, err := fetchSurvey(r, app, surveyId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "get_responses", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses.survey", err)
			return
		}

		page, perPage, offset := pageParams(r, app.PerPage)

		var total int
		err = app.QueryRowContext(r.Context(),
			"SELECT COUNT(*) FROM survey_responses WHERE survey_id = ?", surveyId).
			Scan(&total)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses.count", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT
				r.id, r.survey_id, r.user_id, r.responses_json, r.submitted_at, COALESCE(r.ip_address, ''),
				u.id, u.username, u.email, u.company, u.is_admin, u.is_active, u.created_at
			FROM survey_responses r
			LEFT OUTER JOIN users u ON (r.user_id = u.id)
			WHERE r.survey_id = ?
			ORDER BY r.submitted_at DESC
			LIMIT ? OFFSET ?`,
			surveyId, perPage, offset,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_responses", err)
			return
		}
		defer rows.Close()

		responses := []model.Response{}
		for rows.Next() {
			resp, err := scanResponse(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_responses.scan", err)
				return
			}
			responses = append(responses, resp)
		}

		render.JSON(w, r, map[string]any{
			"survey":       s,
			"responses":    responses,
			"total":        total,
			"pages":        pageCount(total, perPage),
			"current_page": page,
		})
	}
}

func GetSurveyStatistics(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		surveyId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		s, err := fetchSurvey(r, app, surveyId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "get_statistics", surveyId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_statistics.survey", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, survey_id, user_id, responses_json, submitted_at, COALESCE(ip_address, '')
			FROM survey_responses
			WHERE survey_id = ?
			ORDER BY submitted_at ASC, id ASC`,
			surveyId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_statistics.responses", err)
			return
		}
		defer rows.Close()

		responses := []model.Response{}
		for rows.Next() {
			resp := model.Response{}
			var responsesJson string
			err = rows.Scan(&resp.ID, &resp.SurveyID, &resp.UserID, &responsesJson, &resp.SubmittedAt, &resp.IP)
			if err != nil {
				httpx.LogInternalError(w, "db.get_statistics.scan", err)
				return
			}
			if err := json.Unmarshal([]byte(responsesJson), &resp.Answers); err != nil {
				// a corrupt record counts as an empty response
				resp.Answers = map[string]any{}
			}
			responses = append(responses, resp)
		}

		render.JSON(w, r, stats.Aggregate(s, responses))
	}
}

func fetchSurvey(r *http.Request, app app.App, id int) (survey.Survey, error) {
	row := app.QueryRowContext(r.Context(), `
		SELECT `+surveyColumns+`
		FROM surveys s
		WHERE s.id = ?`,
		id,
	)
	return scanSurvey(row)
}

func scanResponse(row rowScanner) (resp model.Response, err error) {
	var responsesJson string
	user := model.User{}
	var userId *int
	var username, email, company *string
	var isAdmin, isActive *bool
	var createdAt *time.Time

	err = row.Scan(
		&resp.ID, &resp.SurveyID, &resp.UserID, &responsesJson, &resp.SubmittedAt, &resp.IP,
		&userId, &username, &email, &company, &isAdmin, &isActive, &createdAt,
	)
	if err != nil {
		return
	}

	if err := json.Unmarshal([]byte(responsesJson), &resp.Answers); err != nil {
		resp.Answers = map[string]any{}
	}

	if userId != nil {
		user.ID = *userId
		user.Username = *username
		user.Email = *email
		user.Company = *company
		user.IsAdmin = *isAdmin
		user.Active = *isActive
		user.CreatedAt = *createdAt
		resp.User = &user
	}
	return resp, nil
}
