// Package httputil writes JSON responses and maps domain error codes to HTTP statuses.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "cinregistry/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error       string `json:"error"`
	Class       string `json:"class"`
	Description string `json:"error_description,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeNoOp:               http.StatusConflict,
	dErrors.CodeInvalidState:       http.StatusConflict,
	dErrors.CodeGenerationConflict: http.StatusServiceUnavailable,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeIntegrityAlarm:     http.StatusInternalServerError,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

var classByCode = map[dErrors.Code]string{
	dErrors.CodeInvalidInput:       "check your input",
	dErrors.CodeUnauthorized:       "sign in",
	dErrors.CodeForbidden:          "not allowed",
	dErrors.CodeNotFound:           "missing",
	dErrors.CodeNoOp:               "nothing changed",
	dErrors.CodeInvalidState:       "wrong state",
	dErrors.CodeGenerationConflict: "try again",
	dErrors.CodeTimeout:            "unknown outcome",
	dErrors.CodeIntegrityAlarm:     "server error",
	dErrors.CodeInternal:           "server error",
}

// StatusFor returns the HTTP status for err's outermost domain code.
func StatusFor(err error) int {
	if status, ok := statusByCode[dErrors.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteError maps err to a status and JSON body. Server-side errors never leak
// their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status := StatusFor(err)

	body := errorBody{
		Error:  string(code),
		Class:  classByCode[code],
		Reason: dErrors.ReasonOf(err),
	}
	if status < http.StatusInternalServerError {
		if de, ok := dErrors.As(err); ok {
			body.Description = de.Message
		}
	}
	WriteJSON(w, status, body)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes a bounded request body into v, rejecting unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
		}
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid request body")
	}
	return nil
}
