package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbolis/survey-portal/app"
	"github.com/mbolis/survey-portal/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)

	root.Mount("/api", apiRouter(app))

	root.
		With(middlewares.CookieAuth(app.BearerServer)).
		Mount("/admin", servePrivateFiles("/admin"))
	root.Mount("/", servePublicFiles())

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get("/health", Health)

	api.Post("/register", Register(app))
	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	api.Group(func(r chi.Router) {
		r.Use(middlewares.Authenticated(app.Config))

		r.Post("/logout", Logout(app))
		r.Get("/me", Me(app))
		r.Put("/profile", UpdateProfile(app))
	})

	// public survey access; submissions accept anonymous respondents
	api.Get("/surveys/active", ActiveSurveys(app))
	api.Get("/surveys/active/first", FirstActiveSurvey(app))
	api.Get(`/surveys/{id:^\d+$}/public`, PublicSurveyById(app))
	api.
		With(middlewares.Optional(app.Config)).
		Post(`/surveys/{id:^\d+$}/responses`, SubmitResponse(app))

	api.Route("/forum", func(r chi.Router) {
		r.Use(middlewares.Authenticated(app.Config))

		r.Get("/posts", ListForumPosts(app))
		r.Post("/posts", CreateForumPost(app))
		r.Get(`/posts/{id:^\d+$}`, GetForumPost(app))
		r.Put(`/posts/{id:^\d+$}`, UpdateForumPost(app))
		r.Delete(`/posts/{id:^\d+$}`, DeleteForumPost(app))
		r.Post(`/posts/{id:^\d+$}/comments`, CreateForumComment(app))
		r.Put(`/comments/{id:^\d+$}`, UpdateForumComment(app))
		r.Delete(`/comments/{id:^\d+$}`, DeleteForumComment(app))
	})

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.Config))

		// CRUD survey
		r.Post("/surveys", CreateSurvey(app))
		r.Get("/surveys", ListSurveys(app))
		r.Get(`/surveys/{id:^\d+$}`, GetSurveyById(app))
		r.Put(`/surveys/{id:^\d+$}`, UpdateSurvey(app))
		r.Delete(`/surveys/{id:^\d+$}`, DeleteSurvey(app))
		r.Put(`/surveys/{id:^\d+$}/activate`, ActivateSurvey(app))
		r.Put(`/surveys/{id:^\d+$}/deactivate`, DeactivateSurvey(app))

		r.Get(`/surveys/{id:^\d+$}/responses`, GetSurveyResponses(app))
		r.Get(`/surveys/{id:^\d+$}/statistics`, GetSurveyStatistics(app))

		// user moderation
		r.Get("/users", ListUsers(app))
		r.Get(`/users/{id:^\d+$}`, GetUserById(app))
		r.Put(`/users/{id:^\d+$}`, UpdateUser(app))
		r.Delete(`/users/{id:^\d+$}`, DeleteUser(app))

		// forum moderation
		r.Get("/forum/posts", AdminListForumPosts(app))
		r.Put(`/forum/posts/{id:^\d+$}/toggle`, AdminToggleForumPost(app))
		r.Get("/forum/comments", AdminListForumComments(app))
		r.Put(`/forum/comments/{id:^\d+$}/toggle`, AdminToggleForumComment(app))
	})

	return api
}

func servePublicFiles() http.Handler {
	return http.FileServer(http.Dir("public"))
}

func servePrivateFiles(path string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir("private")))
}
