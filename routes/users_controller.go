package routes

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/survey-portal/app"
	"github.com/mbolis/survey-portal/httpx"
	"github.com/mbolis/survey-portal/log"
	"github.com/mbolis/survey-portal/model"
	"github.com/mbolis/survey-portal/routes/middlewares"
)

func ListUsers(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, perPage, offset := pageParams(r, app.PerPage)

		var total int
		err := app.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM users").Scan(&total)
		if err != nil {
			httpx.LogInternalError(w, "db.get_users.count", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, username, email, company, is_admin, is_active, created_at
			FROM users
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?`,
			perPage, offset,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_users", err)
			return
		}
		defer rows.Close()

		users := []model.User{}
		for rows.Next() {
			user := model.User{}
			err = rows.Scan(
				&user.ID, &user.Username, &user.Email, &user.Company,
				&user.IsAdmin, &user.Active, &user.CreatedAt,
			)
			if err != nil {
				httpx.LogInternalError(w, "db.get_users.scan", err)
				return
			}
			users = append(users, user)
		}

		render.JSON(w, r, map[string]any{
			"users":        users,
			"total":        total,
			"pages":        pageCount(total, perPage),
			"current_page": page,
		})
	}
}

func GetUserById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		user, err := fetchUser(r, app, userId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "get_user", userId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_user", err)
			return
		}
		render.JSON(w, r, user)
	}
}

type updateUserRequest struct {
	Email   *string `json:"email" validate:"omitempty,email"`
	Company *string `json:"company" validate:"omitempty,max=200"`
	IsAdmin *bool   `json:"is_admin"`
	Active  *bool   `json:"is_active"`
}

func UpdateUser(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := updateUserRequest{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidationErrors(w, "update_user.validate", validationProblems(err))
			return
		}

		user, err := fetchUser(r, app, userId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "update_user", userId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.update_user.get", err)
			return
		}

		// an admin may not strip their own admin flag
		session, _ := middlewares.SessionFrom(r.Context())
		if req.IsAdmin != nil && !*req.IsAdmin && userId == session.UserID {
			httpx.LogErrorJSON(w, http.StatusBadRequest, log.DebugLevel, "update_user.is_admin",
				"cannot revoke your own admin privileges")
			return
		}

		if req.Email != nil {
			user.Email = *req.Email
		}
		if req.Company != nil {
			user.Company = *req.Company
		}
		if req.IsAdmin != nil {
			user.IsAdmin = *req.IsAdmin
		}
		if req.Active != nil {
			user.Active = *req.Active
		}

		_, err = app.ExecContext(r.Context(), `
			UPDATE users
			SET email = ?, company = ?, is_admin = ?, is_active = ?
			WHERE id = ?`,
			user.Email, user.Company, user.IsAdmin, user.Active, userId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_user", err)
			return
		}

		render.JSON(w, r, user)
	}
}

func DeleteUser(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		session, _ := middlewares.SessionFrom(r.Context())
		if userId == session.UserID {
			httpx.LogErrorJSON(w, http.StatusBadRequest, log.DebugLevel, "delete_user.self",
				"cannot delete your own account")
			return
		}

		res, err := app.ExecContext(r.Context(), "DELETE FROM users WHERE id = ?", userId)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_user", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_user.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_user", userId)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
