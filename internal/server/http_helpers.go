package server

import (
	"encoding/json"
	"io"
	"net/http"

	"quote-games/internal/session"
)

func readJSON(body io.Reader, dest any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps a game error onto its HTTP status. Anything that is
// not a session.Error is a 500 and its detail stays out of the response.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := session.StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "Something went wrong. Please try again.")
		return
	}
	writeError(w, status, err.Error())
}
