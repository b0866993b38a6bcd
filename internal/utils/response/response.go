// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every JSON endpoint answers with the same envelope:
//
//	{ "success": true, "message": "member created", "data": {...}, "timestamp": "..." }
//
// so API consumers can always check "success" first and read "message" on
// failure.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/membership-api/internal/storage"
)

// Response is the standard envelope.
type Response struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// WriteJSON writes data as JSON with the given status code.
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// OK wraps data in a successful envelope.
func OK(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data, Timestamp: now()}
}

// GeneralError wraps any Go error into the envelope.
func GeneralError(err error) Response {
	return Response{Success: false, Message: err.Error(), Timestamp: now()}
}

// ValidationError converts validator field errors into one human readable
// message, e.g. "field IDNumber is required, field Email must be a valid
// email address".
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required", "required_unless":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "oneof":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be one of [%s]", e.Field(), e.Param()))
		case "len":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be exactly %s characters", e.Field(), e.Param()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Success:   false,
		Message:   strings.Join(errMessages, ", "),
		Timestamp: now(),
	}
}

// StatusFor maps storage errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict), errors.Is(err, storage.ErrReference):
		return http.StatusConflict
	case errors.Is(err, storage.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err with the status StatusFor picks. Server errors are
// logged and their details hidden from the client.
func Error(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("error", err.Error()))
		WriteJSON(w, status, GeneralError(errors.New("internal server error")))
		return
	}
	WriteJSON(w, status, GeneralError(err))
}

// BadRequest writes a 400 with err's message.
func BadRequest(w http.ResponseWriter, err error) {
	WriteJSON(w, http.StatusBadRequest, GeneralError(err))
}
