package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/mbolis/survey-portal/app"
	"github.com/mbolis/survey-portal/httpx"
	"github.com/mbolis/survey-portal/log"
	"github.com/mbolis/survey-portal/model"
	"github.com/mbolis/survey-portal/routes/middlewares"
)

const forumPostColumns = `
	p.id, p.title, p.content, p.is_active, p.user_id, p.created_at, p.updated_at,
	u.username,
	(SELECT COUNT(*) FROM forum_comments c WHERE c.post_id = p.id AND c.is_active = 1)`

func ListForumPosts(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, perPage, offset := pageParams(r, app.PerPage)

		var total int
		err := app.QueryRowContext(r.Context(),
			"SELECT COUNT(*) FROM forum_posts WHERE is_active = 1").Scan(&total)
		if err != nil {
			httpx.LogInternalError(w, "db.get_posts.count", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT `+forumPostColumns+`
			FROM forum_posts p
			JOIN users u ON (p.user_id = u.id)
			WHERE p.is_active = 1
			ORDER BY p.created_at DESC
			LIMIT ? OFFSET ?`,
			perPage, offset,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_posts", err)
			return
		}
		defer rows.Close()

		posts := []model.ForumPost{}
		for rows.Next() {
			post, err := scanForumPost(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_posts.scan", err)
				return
			}
			posts = append(posts, post)
		}

		render.JSON(w, r, map[string]any{
			"posts":        posts,
			"total":        total,
			"pages":        pageCount(total, perPage),
			"current_page": page,
		})
	}
}

type forumPostRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

func CreateForumPost(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := middlewares.SessionFrom(r.Context())

		req := forumPostRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidationErrors(w, "create_post.validate", validationProblems(err))
			return
		}

		post := model.ForumPost{
			Title:   req.Title,
			Content: req.Content,
			Active:  true,
			UserID:  session.UserID,
			Author:  &model.User{ID: session.UserID, Username: session.Username},
		}
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO forum_posts (title, content, user_id)
			VALUES (?, ?, ?)
			RETURNING id, created_at, updated_at`,
			req.Title, req.Content, session.UserID,
		).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_post", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, post)
	}
}

func GetForumPost(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		post, err := fetchForumPost(r, app, postId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "get_post", postId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_post", err)
			return
		}
		if !post.Active {
			httpx.LogNotFound(w, "get_post", postId)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT c.id, c.content, c.is_active, c.user_id, c.post_id, c.created_at, c.updated_at, u.username
			FROM forum_comments c
			JOIN users u ON (c.user_id = u.id)
			WHERE c.post_id = ? AND c.is_active = 1
			ORDER BY c.created_at ASC`,
			postId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_post.comments", err)
			return
		}
		defer rows.Close()

		post.Comments = []model.ForumComment{}
		for rows.Next() {
			comment, err := scanForumComment(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.get_post.comments.scan", err)
				return
			}
			post.Comments = append(post.Comments, comment)
		}

		render.JSON(w, r, post)
	}
}

type updateForumPostRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Content *string `json:"content"`
}

func UpdateForumPost(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := updateForumPostRequest{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidationErrors(w, "update_post.validate", validationProblems(err))
			return
		}

		post, err := fetchForumPost(r, app, postId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "update_post", postId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.update_post.get", err)
			return
		}

		session, _ := middlewares.SessionFrom(r.Context())
		if post.UserID != session.UserID && !session.IsAdmin {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "update_post.owner")
			return
		}

		if req.Title != nil {
			post.Title = *req.Title
		}
		if req.Content != nil {
			post.Content = *req.Content
		}
		post.UpdatedAt = time.Now()

		_, err = app.ExecContext(r.Context(), `
			UPDATE forum_posts
			SET title = ?, content = ?, updated_at = ?
			WHERE id = ?`,
			post.Title, post.Content, post.UpdatedAt, postId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_post", err)
			return
		}

		render.JSON(w, r, post)
	}
}

// DeleteForumPost deactivates the post instead of removing the row, so
// moderators can restore it later.
func DeleteForumPost(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		post, err := fetchForumPost(r, app, postId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "delete_post", postId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.delete_post.get", err)
			return
		}

		session, _ := middlewares.SessionFrom(r.Context())
		if post.UserID != session.UserID && !session.IsAdmin {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "delete_post.owner")
			return
		}

		_, err = app.ExecContext(r.Context(),
			"UPDATE forum_posts SET is_active = 0 WHERE id = ?", postId)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_post", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type forumCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

func CreateForumComment(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := forumCommentRequest{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidationErrors(w, "create_comment.validate", validationProblems(err))
			return
		}

		post, err := fetchForumPost(r, app, postId)
		if isNoRows(err) || (err == nil && !post.Active) {
			httpx.LogNotFound(w, "create_comment.post", postId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.create_comment.post", err)
			return
		}

		session, _ := middlewares.SessionFrom(r.Context())
		comment := model.ForumComment{
			Content: req.Content,
			Active:  true,
			UserID:  session.UserID,
			PostID:  postId,
			Author:  &model.User{ID: session.UserID, Username: session.Username},
		}
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO forum_comments (content, user_id, post_id)
			VALUES (?, ?, ?)
			RETURNING id, created_at, updated_at`,
			req.Content, session.UserID, postId,
		).Scan(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_comment", err)
			return
		}

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, comment)
	}
}

func UpdateForumComment(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := forumCommentRequest{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}
		if err := validate.Struct(req); err != nil {
			httpx.LogValidationErrors(w, "update_comment.validate", validationProblems(err))
			return
		}

		comment, err := fetchForumComment(r, app, commentId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "update_comment", commentId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.update_comment.get", err)
			return
		}

		session, _ := middlewares.SessionFrom(r.Context())
		if comment.UserID != session.UserID && !session.IsAdmin {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "update_comment.owner")
			return
		}

		comment.Content = req.Content
		comment.UpdatedAt = time.Now()

		_, err = app.ExecContext(r.Context(), `
			UPDATE forum_comments
			SET content = ?, updated_at = ?
			WHERE id = ?`,
			comment.Content, comment.UpdatedAt, commentId,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_comment", err)
			return
		}

		render.JSON(w, r, comment)
	}
}

func DeleteForumComment(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		comment, err := fetchForumComment(r, app, commentId)
		if isNoRows(err) {
			httpx.LogNotFound(w, "delete_comment", commentId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.delete_comment.get", err)
			return
		}

		session, _ := middlewares.SessionFrom(r.Context())
		if comment.UserID != session.UserID && !session.IsAdmin {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "delete_comment.owner")
			return
		}

		_, err = app.ExecContext(r.Context(),
			"UPDATE forum_comments SET is_active = 0 WHERE id = ?", commentId)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_comment", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func AdminListForumPosts(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, perPage, offset := pageParams(r, app.PerPage)

		var total int
		err := app.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM forum_posts").Scan(&total)
		if err != nil {
			httpx.LogInternalError(w, "db.admin_get_posts.count", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT `+forumPostColumns+`
			FROM forum_posts p
			JOIN users u ON (p.user_id = u.id)
			ORDER BY p.created_at DESC
			LIMIT ? OFFSET ?`,
			perPage, offset,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.admin_get_posts", err)
			return
		}
		defer rows.Close()

		posts := []model.ForumPost{}
		for rows.Next() {
			post, err := scanForumPost(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.admin_get_posts.scan", err)
				return
			}
			posts = append(posts, post)
		}

		render.JSON(w, r, map[string]any{
			"posts":        posts,
			"total":        total,
			"pages":        pageCount(total, perPage),
			"current_page": page,
		})
	}
}

func AdminToggleForumPost(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(),
			"UPDATE forum_posts SET is_active = NOT is_active WHERE id = ?", postId)
		if err != nil {
			httpx.LogInternalError(w, "db.toggle_post", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.toggle_post.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "toggle_post", postId)
			return
		}

		post, err := fetchForumPost(r, app, postId)
		if err != nil {
			httpx.LogInternalError(w, "db.toggle_post.get", err)
			return
		}
		render.JSON(w, r, post)
	}
}

func AdminListForumComments(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, perPage, offset := pageParams(r, app.PerPage)

		var total int
		err := app.QueryRowContext(r.Context(), "SELECT COUNT(*) FROM forum_comments").Scan(&total)
		if err != nil {
			httpx.LogInternalError(w, "db.admin_get_comments.count", err)
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT c.id, c.content, c.is_active, c.user_id, c.post_id, c.created_at, c.updated_at, u.username
			FROM forum_comments c
			JOIN users u ON (c.user_id = u.id)
			ORDER BY c.created_at DESC
			LIMIT ? OFFSET ?`,
			perPage, offset,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.admin_get_comments", err)
			return
		}
		defer rows.Close()

		comments := []model.ForumComment{}
		for rows.Next() {
			comment, err := scanForumComment(rows)
			if err != nil {
				httpx.LogInternalError(w, "db.admin_get_comments.scan", err)
				return
			}
			comments = append(comments, comment)
		}

		render.JSON(w, r, map[string]any{
			"comments":     comments,
			"total":        total,
			"pages":        pageCount(total, perPage),
			"current_page": page,
		})
	}
}

func AdminToggleForumComment(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commentId, err := urlParamId(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		res, err := app.ExecContext(r.Context(),
			"UPDATE forum_comments SET is_active = NOT is_active WHERE id = ?", commentId)
		if err != nil {
			httpx.LogInternalError(w, "db.toggle_comment", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.toggle_comment.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "toggle_comment", commentId)
			return
		}

		comment, err := fetchForumComment(r, app, commentId)
		if err != nil {
			httpx.LogInternalError(w, "db.toggle_comment.get", err)
			return
		}
		render.JSON(w, r, comment)
	}
}

func fetchForumPost(r *http.Request, app app.App, id int) (model.ForumPost, error) {
	row := app.QueryRowContext(r.Context(), `
		SELECT `+forumPostColumns+`
		FROM forum_posts p
		JOIN users u ON (p.user_id = u.id)
		WHERE p.id = ?`,
		id,
	)
	return scanForumPost(row)
}

func fetchForumComment(r *http.Request, app app.App, id int) (model.ForumComment, error) {
	row := app.QueryRowContext(r.Context(), `
		SELECT c.id, c.content, c.is_active, c.user_id, c.post_id, c.created_at, c.updated_at, u.username
		FROM forum_comments c
		JOIN users u ON (c.user_id = u.id)
		WHERE c.id = ?`,
		id,
	)
	return scanForumComment(row)
}

func scanForumPost(row rowScanner) (post model.ForumPost, err error) {
	var username string
	err = row.Scan(
		&post.ID, &post.Title, &post.Content, &post.Active, &post.UserID,
		&post.CreatedAt, &post.UpdatedAt,
		&username,
		&post.CommentsCount,
	)
	if err != nil {
		return
	}
	post.Author = &model.User{ID: post.UserID, Username: username}
	return
}

func scanForumComment(row rowScanner) (comment model.ForumComment, err error) {
	var username string
	err = row.Scan(
		&comment.ID, &comment.Content, &comment.Active, &comment.UserID, &comment.PostID,
		&comment.CreatedAt, &comment.UpdatedAt,
		&username,
	)
	if err != nil {
		return
	}
	comment.Author = &model.User{ID: comment.UserID, Username: username}
	return
}
