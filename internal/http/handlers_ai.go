package http

import (
	"net/http"
	"strings"

	"expensio/internal/core"
)

type parseRequest struct {
	RawInput string `json:"rawInput"`
}

type adviceRequest struct {
	Query string `json:"query"`
}

// handleParseExpense runs the full ingestion pipeline: free-form text to the
// language service, the draft through validation, the record into the store.
func (s *Server) handleParseExpense(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.RawInput) == "" {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid expense payload", []core.FieldError{
			{Field: "rawInput", Message: "rawInput is required"},
		})
		return
	}

	rec, err := s.api.Ingest(r.Context(), OwnerID(r.Context()), req.RawInput)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, kindValidation, "invalid advice payload", []core.FieldError{
			{Field: "query", Message: "query is required"},
		})
		return
	}

	message, err := s.api.Advice(r.Context(), OwnerID(r.Context()), req.Query)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}
