package httputil

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/patentdesk/pkg/observability"
)

// Error is an error that carries its own HTTP status
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error with an optional cause
func NewError(status int, message string, cause error) *Error {
	return &Error{Status: status, Message: message, Err: cause}
}

// ErrorMap maps package sentinel errors onto HTTP statuses
type ErrorMap map[error]int

// StatusFor resolves the status for err, returning 500 when nothing matches
func (m ErrorMap) StatusFor(err error) (int, bool) {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr.Status, true
	}
	for sentinel, status := range m {
		if errors.Is(err, sentinel) {
			return status, true
		}
	}
	return http.StatusInternalServerError, false
}

// WriteServiceError writes err using mapping. Mapped errors return the sentinel's message;
// unmapped ones are logged with the request context and collapsed to a generic 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error, mapping ErrorMap) {
	status, known := mapping.StatusFor(err)
	if !known {
		observability.FromContext(r.Context()).
			WithError(err).
			WithField("path", r.URL.Path).
			Error("request failed")
		WriteInternalError(w)
		return
	}

	message := err.Error()
	var httpErr *Error
	if errors.As(err, &httpErr) {
		message = httpErr.Message
	} else {
		for sentinel := range mapping {
			if errors.Is(err, sentinel) {
				message = sentinel.Error()
				break
			}
		}
	}
	WriteErrorMessage(w, status, message)
}
