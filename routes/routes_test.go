package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mbolis/survey-portal/app"
	"github.com/mbolis/survey-portal/config"
	"github.com/mbolis/survey-portal/database"
	"github.com/mbolis/survey-portal/survey"
	"golang.org/x/crypto/bcrypt"
)

func setupTestApp(t *testing.T) app.App {
	t.Helper()

	cfg := config.Config{
		DBUrl:       filepath.Join(t.TempDir(), "test.sqlite"),
		TokenSecret: "test-secret",
		TokenTTL:    time.Hour,
		BcryptCost:  bcrypt.MinCost,
		PerPage:     20,
	}

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return app.App{DB: db, Config: cfg}
}

func insertSurvey(t *testing.T, app app.App, s survey.Survey) int {
	t.Helper()

	questionsJson, err := survey.EncodeQuestions(s.Questions)
	if err != nil {
		t.Fatalf("encode questions: %v", err)
	}

	var id int
	err = app.QueryRow(`
		INSERT INTO surveys (title, description, questions_json, is_active)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		s.Title, s.Description, questionsJson, s.Active,
	).Scan(&id)
	if err != nil {
		t.Fatalf("insert survey: %v", err)
	}
	return id
}

func feedbackQuestions() []survey.Question {
	return []survey.Question{
		{ID: 1, Text: "Overall satisfaction", Type: survey.TypeRating, Required: true},
		{ID: 2, Text: "Would you recommend us?", Type: survey.TypeRadio, Required: true, Options: []string{"Yes", "No"}},
		{ID: 3, Text: "Anything to add?", Type: survey.TypeText},
	}
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestActiveSurveys(t *testing.T) {
	app := setupTestApp(t)
	handler := ActiveSurveys(app)

	req := httptest.NewRequest("GET", "/surveys/active", nil)
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status with no surveys = %d, want 404", w.Code)
	}

	insertSurvey(t, app, survey.Survey{Title: "Dormant", Questions: feedbackQuestions()})
	insertSurvey(t, app, survey.Survey{Title: "Live", Active: true, Questions: feedbackQuestions()})

	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest("GET", "/surveys/active", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var surveys []survey.Survey
	if err := json.Unmarshal(w.Body.Bytes(), &surveys); err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if len(surveys) != 1 || surveys[0].Title != "Live" {
		t.Errorf("unexpected surveys: %+v", surveys)
	}
	if len(surveys[0].Questions) != 3 {
		t.Errorf("questions = %d, want 3", len(surveys[0].Questions))
	}
}

func submitRouter(app app.App) http.Handler {
	r := chi.NewRouter()
	r.Post(`/surveys/{id:^\d+$}/responses`, SubmitResponse(app))
	return r
}

func TestSubmitResponse(t *testing.T) {
	app := setupTestApp(t)
	surveyId := insertSurvey(t, app, survey.Survey{
		Title:     "Feedback",
		Active:    true,
		Questions: feedbackQuestions(),
	})
	router := submitRouter(app)

	post := func(path string, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", path, bytes.NewReader([]byte(payload)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}
	path := "/surveys/1/responses"
	if surveyId != 1 {
		t.Fatalf("unexpected survey id %d", surveyId)
	}

	t.Run("empty responses", func(t *testing.T) {
		w := post(path, `{"responses":{}}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("missing required answers", func(t *testing.T) {
		w := post(path, `{"responses":{"3":"nice product"}}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		var body struct {
			Error     string   `json:"error"`
			Questions []string `json:"questions"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("parse body: %v", err)
		}
		if len(body.Questions) != 2 || body.Questions[0] != "1" || body.Questions[1] != "2" {
			t.Errorf("failing questions = %v, want [1 2]", body.Questions)
		}
	})

	t.Run("valid submission", func(t *testing.T) {
		w := post(path, `{"responses":{"1":5,"2":"Yes","3":""}}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", w.Code, w.Body)
		}
		var body struct {
			ResponseID int    `json:"response_id"`
			Receipt    string `json:"receipt"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("parse body: %v", err)
		}
		if body.ResponseID == 0 || body.Receipt == "" {
			t.Errorf("incomplete receipt: %+v", body)
		}

		var stored string
		err := app.QueryRow(
			"SELECT responses_json FROM survey_responses WHERE id = ?", body.ResponseID).
			Scan(&stored)
		if err != nil {
			t.Fatalf("load stored response: %v", err)
		}
		var responses map[string]any
		if err := json.Unmarshal([]byte(stored), &responses); err != nil {
			t.Fatalf("parse stored responses: %v", err)
		}
		if responses["2"] != "Yes" {
			t.Errorf("stored responses = %v", responses)
		}
	})

	t.Run("inactive survey", func(t *testing.T) {
		dormantId := insertSurvey(t, app, survey.Survey{Title: "Dormant", Questions: feedbackQuestions()})
		w := post("/surveys/"+strconv.Itoa(dormantId)+"/responses", `{"responses":{"1":5,"2":"Yes"}}`)
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestCreateSurvey(t *testing.T) {
	app := setupTestApp(t)
	handler := CreateSurvey(app)

	post := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/admin/surveys", bytes.NewReader([]byte(payload)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler(w, req)
		return w
	}

	t.Run("schema violations are collected", func(t *testing.T) {
		w := post(`{
			"title": "",
			"questions": [
				{"id": 1, "text": "Pick one", "type": "radio", "options": ["Only"]}
			]
		}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		var body struct {
			Error   string   `json:"error"`
			Details []string `json:"details"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("parse body: %v", err)
		}
		if len(body.Details) != 2 {
			t.Errorf("details = %v, want 2 problems", body.Details)
		}
	})

	t.Run("activation retires previous survey", func(t *testing.T) {
		w := post(`{
			"title": "First",
			"is_active": true,
			"questions": [{"id": 1, "text": "Q", "type": "text"}]
		}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", w.Code, w.Body)
		}

		w = post(`{
			"title": "Second",
			"is_active": true,
			"questions": [{"id": 1, "text": "Q", "type": "text"}]
		}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", w.Code, w.Body)
		}

		var active int
		err := app.QueryRow("SELECT COUNT(*) FROM surveys WHERE is_active = 1").Scan(&active)
		if err != nil {
			t.Fatalf("count active: %v", err)
		}
		if active != 1 {
			t.Errorf("active surveys = %d, want 1", active)
		}
		var title string
		err = app.QueryRow("SELECT title FROM surveys WHERE is_active = 1").Scan(&title)
		if err != nil {
			t.Fatalf("get active: %v", err)
		}
		if title != "Second" {
			t.Errorf("active survey = %q, want Second", title)
		}
	})
}

func TestGetSurveyStatistics(t *testing.T) {
	app := setupTestApp(t)
	surveyId := insertSurvey(t, app, survey.Survey{
		Title:     "Feedback",
		Active:    true,
		Questions: feedbackQuestions(),
	})

	for _, responses := range []string{
		`{"1":5,"2":"Yes","3":"great"}`,
		`{"1":3,"2":"No","3":""}`,
	} {
		_, err := app.Exec(`
			INSERT INTO survey_responses (survey_id, responses_json)
			VALUES (?, ?)`,
			surveyId, responses,
		)
		if err != nil {
			t.Fatalf("insert response: %v", err)
		}
	}

	r := chi.NewRouter()
	r.Get(`/surveys/{id:^\d+$}/statistics`, GetSurveyStatistics(app))

	req := httptest.NewRequest("GET", "/surveys/"+strconv.Itoa(surveyId)+"/statistics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body)
	}

	var report struct {
		TotalResponses int `json:"total_responses"`
		Statistics     map[string]struct {
			AnsweredCount int     `json:"answered_count"`
			ResponseRate  float64 `json:"response_rate"`
		} `json:"statistics"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if report.TotalResponses != 2 {
		t.Errorf("total_responses = %d, want 2", report.TotalResponses)
	}
	if len(report.Statistics) != 3 {
		t.Errorf("statistics entries = %d, want 3", len(report.Statistics))
	}
	if stat := report.Statistics["question_0"]; stat.AnsweredCount != 2 || stat.ResponseRate != 100 {
		t.Errorf("rating stat = %+v", stat)
	}
	if stat := report.Statistics["question_2"]; stat.AnsweredCount != 1 || stat.ResponseRate != 50 {
		t.Errorf("text stat = %+v", stat)
	}
}

func TestRegister(t *testing.T) {
	app := setupTestApp(t)
	handler := Register(app)

	post := func(payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/register", bytes.NewReader([]byte(payload)))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		handler(w, req)
		return w
	}

	t.Run("weak payload is rejected", func(t *testing.T) {
		w := post(`{"username":"jo","email":"not-an-email","password":"short"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
		var body struct {
			Details []string `json:"details"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("parse body: %v", err)
		}
		if len(body.Details) != 3 {
			t.Errorf("details = %v, want 3 problems", body.Details)
		}
	})

	t.Run("valid registration", func(t *testing.T) {
		w := post(`{"username":"jdoe","email":"jdoe@example.com","password":"s3cret-enough","company":"Acme"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", w.Code, w.Body)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		w := post(`{"username":"jdoe","email":"other@example.com","password":"s3cret-enough"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

