// Package http exposes the expense API over JSON. Owner identity comes from
// a Bearer token on every /api route; handlers never see a request without
// one.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"expensio/internal/auth"
	"expensio/internal/core"
)

// ExpenseAPI is what the handlers need from the service layer.
type ExpenseAPI interface {
	Ingest(ctx context.Context, ownerID, rawInput string) (*core.ExpenseRecord, error)
	Create(ctx context.Context, ownerID string, in core.CreateInput) (*core.ExpenseRecord, error)
	List(ctx context.Context, ownerID string) ([]core.ExpenseRecord, error)
	Update(ctx context.Context, ownerID, id string, in core.UpdateInput) (*core.ExpenseRecord, error)
	Delete(ctx context.Context, ownerID, id string) (*core.ExpenseRecord, error)
	Analytics(ctx context.Context, ownerID string, period time.Duration) (core.AnalyticsView, error)
	Advice(ctx context.Context, ownerID, query string) (string, error)
}

type Server struct {
	http.Server
	api          ExpenseAPI
	tokens       *auth.TokenService
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, api ExpenseAPI, tokens *auth.TokenService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		api:         api,
		tokens:      tokens,
		rateLimiter: newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /api/expenses", s.protected(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses", s.protected(s.handleListExpenses))
	mux.HandleFunc("GET /api/expenses/analytics", s.protected(s.handleAnalytics))
	mux.HandleFunc("PUT /api/expenses/{id}", s.protected(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.protected(s.handleDeleteExpense))

	mux.HandleFunc("POST /api/ai/parse", s.protected(s.handleParseExpense))
	mux.HandleFunc("POST /api/ai/advice", s.protected(s.handleAdvice))

	return s
}

// protected stacks the common middleware and token verification.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withMiddleware(s.withAuth(next))
}

// Shutdown gracefully stops the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
