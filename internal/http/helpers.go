package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"expensio/internal/ai"
	"expensio/internal/core"
)

const (
	kindValidation          = "validation"
	kindNotFound            = "not_found"
	kindUpstreamUnavailable = "upstream_unavailable"
	kindMalformedUpstream   = "malformed_upstream"
	kindUnauthorized        = "unauthorized"
	kindBadRequest          = "bad_request"
	kindInternal            = "internal"
)

type errorBody struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  []core.FieldError `json:"fields,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string, fields []core.FieldError) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Kind:    kind,
		Message: message,
		Fields:  fields,
	}})
}

// writeServiceError maps domain and upstream failures onto the error
// envelope. Unknown errors render a generic internal failure, never the
// underlying message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs core.ValidationErrors
	var upstream *ai.UpstreamError
	var malformed *ai.MalformedError

	switch {
	case errors.As(err, &verrs):
		writeError(w, http.StatusBadRequest, kindValidation, "invalid expense payload", verrs)
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, kindNotFound, "expense not found", nil)
	case errors.As(err, &upstream):
		slog.ErrorContext(r.Context(), "Language service unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, kindUpstreamUnavailable, "language service is unavailable, try again later", nil)
	case errors.As(err, &malformed):
		slog.ErrorContext(r.Context(), "Language service returned malformed data", "error", err)
		writeError(w, http.StatusBadGateway, kindMalformedUpstream, "language service returned an unusable answer", nil)
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, kindInternal, "internal error", nil)
	}
}

// decodeJSON decodes the request body into dst. A type mismatch on a known
// field is reported as a validation error on that field, so a client sending
// `"amount": "abc"` learns which field is wrong rather than getting a
// generic parse failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		writeError(w, http.StatusBadRequest, kindValidation, "invalid expense payload", []core.FieldError{
			{Field: typeErr.Field, Message: typeErr.Field + " must be of type " + typeErr.Type.String()},
		})
	case errors.Is(err, io.EOF):
		writeError(w, http.StatusBadRequest, kindBadRequest, "request body is empty", nil)
	default:
		writeError(w, http.StatusBadRequest, kindBadRequest, "request body is not valid JSON", nil)
	}
	return false
}
