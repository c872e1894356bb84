package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mbolis/survey-portal/log"
)

// Will log an error, and send an HTTP response with status 500 and default text
func LogInternalError(w http.ResponseWriter, code string, err error) {
	log.Errorf("%s: %s", code, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// Will log a debug message, and send an HTTP response with status 404 and default text
func LogNotFound(w http.ResponseWriter, code string, id any) {
	log.Debugf("%s: not found (%v)", code, id)
	w.WriteHeader(http.StatusNotFound)
}

// Will log an error code at the given level, and send
// an HTTP response with status and default text
func LogStatus(w http.ResponseWriter, status int, level log.Level, code string) {
	log.Log(level, code)
	http.Error(w, http.StatusText(status), status)
}

// Will log an error code and message at the given level,
// and send an HTTP response with the given status and a JSON error body
func LogErrorJSON(w http.ResponseWriter, status int, level log.Level, code string, msg string, args ...any) {
	errMsg := fmt.Sprintf(msg, args...)
	log.Log(level, code+":", errMsg)
	writeJSON(w, status, map[string]any{"error": errMsg})
}

// Will log the violation list at debug level, and send an HTTP response with
// status 400 and the full list so the caller can surface every problem at once
func LogValidationErrors(w http.ResponseWriter, code string, problems []string) {
	log.Debugf("%s: %v", code, problems)
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":   "validation failed",
		"details": problems,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
