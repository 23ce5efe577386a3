// Package httputil writes JSON responses and the shared error envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"principalcheck/pkg/platform/sentinel"
)

// Error is an HTTP-facing error with a stable code.
type Error struct {
	Status      int
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// BadRequest reports a malformed request.
func BadRequest(description string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "bad_request", Description: description}
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON encodes body as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError translates err into the error envelope. Internal errors never
// expose their description.
func WriteError(w http.ResponseWriter, err error) {
	e := translate(err)
	resp := errorResponse{Error: e.Code}
	if e.Status != http.StatusInternalServerError {
		resp.ErrorDescription = e.Description
	}
	WriteJSON(w, e.Status, resp)
}

func translate(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return &Error{Status: http.StatusNotFound, Code: "not_found", Description: err.Error()}
	case errors.Is(err, sentinel.ErrInvalidState):
		return &Error{Status: http.StatusBadRequest, Code: "bad_request", Description: err.Error()}
	case errors.Is(err, sentinel.ErrUnavailable):
		return &Error{Status: http.StatusServiceUnavailable, Code: "service_unavailable", Description: "dependency unavailable"}
	default:
		return &Error{Status: http.StatusInternalServerError, Code: "internal_error"}
	}
}
