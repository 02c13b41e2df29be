package http

import (
	"net/http"
	"time"

	"expensio/internal/core"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	rec, err := s.api.Create(r.Context(), OwnerID(r.Context()), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	records, err := s.api.List(r.Context(), OwnerID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if records == nil {
		records = []core.ExpenseRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": records})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var in core.UpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	rec, err := s.api.Update(r.Context(), OwnerID(r.Context()), r.PathValue("id"), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	rec, err := s.api.Delete(r.Context(), OwnerID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	period := core.DefaultComparisonPeriod
	if raw := r.URL.Query().Get("period"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, kindBadRequest, "period must be a positive duration such as 168h", nil)
			return
		}
		period = parsed
	}

	view, err := s.api.Analytics(r.Context(), OwnerID(r.Context()), period)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
