package routes

import (
	"net/http"

	"github.com/go-chi/render"
)

func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":  "healthy",
		"message": "survey portal API is running",
	})
}
