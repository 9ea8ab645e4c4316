package session

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the typed failure every game operation returns. Status is an
// HTTP-style code (400/403/404/409/503) that the transport layer can forward
// directly.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Errorf(status int, format string, args ...any) *Error {
	return &Error{Status: status, Message: fmt.Sprintf(format, args...)}
}

// StatusOf extracts the HTTP status from err, defaulting to 500 for
// unexpected failures (broken DB connection and the like).
func StatusOf(err error) int {
	var gameErr *Error
	if errors.As(err, &gameErr) {
		return gameErr.Status
	}
	return http.StatusInternalServerError
}
