package routes

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/render"
	"github.com/mbolis/survey-portal/app"
	"github.com/mbolis/survey-portal/httpx"
	"github.com/mbolis/survey-portal/log"
	"github.com/mbolis/survey-portal/model"
	"github.com/mbolis/survey-portal/routes/middlewares"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Company  string `json:"company" validate:"max=200"`
}

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := registerRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidationErrors(w, "register.validate", validationProblems(err))
			return
		}

		var taken bool
		err = app.QueryRowContext(r.Context(),
			"SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)", req.Username).
			Scan(&taken)
		if err != nil {
			httpx.LogInternalError(w, "db.check_username", err)
			return
		}
		if taken {
			httpx.LogErrorJSON(w, http.StatusBadRequest, log.DebugLevel, "register.username", "username already exists")
			return
		}
		err = app.QueryRowContext(r.Context(),
			"SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)", req.Email).
			Scan(&taken)
		if err != nil {
			httpx.LogInternalError(w, "db.check_email", err)
			return
		}
		if taken {
			httpx.LogErrorJSON(w, http.StatusBadRequest, log.DebugLevel, "register.email", "email already exists")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), app.BcryptCost)
		if err != nil {
			httpx.LogInternalError(w, "register.hash", err)
			return
		}

		user := model.User{
			Username: req.Username,
			Email:    req.Email,
			Company:  req.Company,
			Active:   true,
		}
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO users (username, email, password_hash, company)
			VALUES (?, ?, ?, ?)
			RETURNING id, created_at`,
			req.Username, req.Email, string(hash), req.Company,
		).Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_user", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"message": "user registered successfully",
			"user":    user,
		})
	}
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		body := url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		}
		r.Body = io.NopCloser(strings.NewReader(body.Encode()))
		r.Header.Set("content-type", "application/x-www-form-urlencoded")
		r.Header.Set("content-length", strconv.Itoa(len(body.Encode())))
		app.UserCredentials(w, r)
	}
}

func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("authorization")
		match := regexp.MustCompile(`(?i)^refresh\s+(.*)`).FindStringSubmatch(auth)
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}
		token := match[1]

		body := url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {token},
		}

		req, err := http.NewRequest("POST", "/", strings.NewReader(body.Encode()))
		if err != nil {
			httpx.LogStatus(w, http.StatusInternalServerError, log.DebugLevel, "refresh.new_request")
			return
		}
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
		req.Header.Set("content-length", strconv.Itoa(len(body.Encode())))

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		resp.Flush(w)
	}
}

func Logout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := middlewares.SessionFrom(r.Context())

		_, err := app.ExecContext(r.Context(),
			"DELETE FROM tokens WHERE username = ?", session.Username)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_tokens", err)
			return
		}

		for _, name := range []string{"access_token", "refresh_token"} {
			http.SetCookie(w, &http.Cookie{
				Path:     "/",
				Name:     name,
				Value:    "",
				MaxAge:   -1,
				SameSite: http.SameSiteNoneMode,
			})
		}
		render.JSON(w, r, map[string]any{"message": "logout successful"})
	}
}

func Me(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := middlewares.SessionFrom(r.Context())

		user, err := fetchUser(r, app, session.UserID)
		if isNoRows(err) {
			httpx.LogNotFound(w, "get_me", session.UserID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_me", err)
			return
		}
		render.JSON(w, r, user)
	}
}

type profileRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Company  *string `json:"company" validate:"omitempty,max=200"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

func UpdateProfile(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := middlewares.SessionFrom(r.Context())

		req := profileRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidationErrors(w, "profile.validate", validationProblems(err))
			return
		}

		if req.Email != nil {
			_, err = app.ExecContext(r.Context(),
				"UPDATE users SET email = ? WHERE id = ?", *req.Email, session.UserID)
			if err != nil {
				httpx.LogInternalError(w, "db.update_profile.email", err)
				return
			}
		}
		if req.Company != nil {
			_, err = app.ExecContext(r.Context(),
				"UPDATE users SET company = ? WHERE id = ?", *req.Company, session.UserID)
			if err != nil {
				httpx.LogInternalError(w, "db.update_profile.company", err)
				return
			}
		}
		if req.Password != nil {
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), app.BcryptCost)
			if err != nil {
				httpx.LogInternalError(w, "profile.hash", err)
				return
			}
			_, err = app.ExecContext(r.Context(),
				"UPDATE users SET password_hash = ? WHERE id = ?", string(hash), session.UserID)
			if err != nil {
				httpx.LogInternalError(w, "db.update_profile.password", err)
				return
			}
		}

		user, err := fetchUser(r, app, session.UserID)
		if err != nil {
			httpx.LogInternalError(w, "db.get_profile", err)
			return
		}
		render.JSON(w, r, user)
	}
}

func fetchUser(r *http.Request, app app.App, id int) (user model.User, err error) {
	err = app.QueryRowContext(r.Context(), `
		SELECT id, username, email, company, is_admin, is_active, created_at
		FROM users
		WHERE id = ?`,
		id,
	).Scan(
		&user.ID, &user.Username, &user.Email, &user.Company,
		&user.IsAdmin, &user.Active, &user.CreatedAt,
	)
	return
}
