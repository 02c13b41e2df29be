package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expensio/internal/ai"
	"expensio/internal/amqp"
	"expensio/internal/cache"
	"expensio/internal/core"
)

// ExpenseStore is the owner-scoped persistence contract the service writes
// through. Only validated records ever reach it.
type ExpenseStore interface {
	Create(ctx context.Context, ownerID string, rec core.ExpenseRecord) (string, error)
	ListByOwner(ctx context.Context, ownerID string, dateDescending bool) ([]core.ExpenseRecord, error)
	GetByID(ctx context.Context, id, ownerID string) (*core.ExpenseRecord, error)
	UpdateByID(ctx context.Context, id, ownerID string, patch core.RecordPatch) (*core.ExpenseRecord, error)
	DeleteByID(ctx context.Context, id, ownerID string) (*core.ExpenseRecord, error)
}

// DraftParser turns free-form text into an untrusted expense draft.
type DraftParser interface {
	Parse(ctx context.Context, rawInput string) (ai.Draft, error)
}

// AdviceProvider answers a spending question against the given records.
type AdviceProvider interface {
	Advise(ctx context.Context, query string, expenses []core.ExpenseRecord) (string, error)
}

// EventPublisher announces expense changes to downstream consumers.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, eventType, id, ownerID string) error
}

// ExpenseService orchestrates the ingestion pipeline and the read paths. It
// is the only way records reach the store, which is what keeps the
// parse-validate-persist ordering honest.
type ExpenseService struct {
	store     ExpenseStore
	parser    DraftParser
	advisor   AdviceProvider
	publisher EventPublisher
	analytics *cache.LRUCache[core.AnalyticsView]
}

func NewExpenseService(store ExpenseStore, parser DraftParser, advisor AdviceProvider, publisher EventPublisher) *ExpenseService {
	return &ExpenseService{
		store:     store,
		parser:    parser,
		advisor:   advisor,
		publisher: publisher,
		analytics: cache.NewLRUCache[core.AnalyticsView](256, 5*time.Minute),
	}
}

// Ingest runs the full pipeline: free-form text through the language
// service, the draft through validation, and only a fully valid record into
// the store. A draft that fails validation is rejected whole.
func (s *ExpenseService) Ingest(ctx context.Context, ownerID, rawInput string) (*core.ExpenseRecord, error) {
	draft, err := s.parser.Parse(ctx, rawInput)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, ownerID, draft.CreateInput(rawInput))
}

// Create validates the payload and persists it for the given owner.
func (s *ExpenseService) Create(ctx context.Context, ownerID string, in core.CreateInput) (*core.ExpenseRecord, error) {
	rec, err := core.ValidateCreate(in)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Create(ctx, ownerID, rec)
	if err != nil {
		return nil, fmt.Errorf("save expense: %w", err)
	}

	stored, err := s.store.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load saved expense: %w", err)
	}

	s.invalidateAnalytics(ownerID)
	s.publishEvent(ctx, amqp.EventCreated, id, ownerID)

	return stored, nil
}

// List returns the owner's records, most recent transaction date first.
func (s *ExpenseService) List(ctx context.Context, ownerID string) ([]core.ExpenseRecord, error) {
	return s.store.ListByOwner(ctx, ownerID, true)
}

// Update validates the partial payload and applies it to the owner's record.
func (s *ExpenseService) Update(ctx context.Context, ownerID, id string, in core.UpdateInput) (*core.ExpenseRecord, error) {
	patch, err := core.ValidatePatch(in)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateByID(ctx, id, ownerID, patch)
	if err != nil {
		return nil, err
	}

	s.invalidateAnalytics(ownerID)
	s.publishEvent(ctx, amqp.EventUpdated, id, ownerID)

	return updated, nil
}

// Delete removes the owner's record and returns it.
func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) (*core.ExpenseRecord, error) {
	deleted, err := s.store.DeleteByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	s.invalidateAnalytics(ownerID)
	s.publishEvent(ctx, amqp.EventDeleted, id, ownerID)

	return deleted, nil
}

// Analytics computes the owner's spending view over the comparison period,
// memoized until the owner's next write or the cache TTL.
func (s *ExpenseService) Analytics(ctx context.Context, ownerID string, period time.Duration) (core.AnalyticsView, error) {
	key := analyticsKey(ownerID, period)
	if view, ok := s.analytics.Get(key); ok {
		return view, nil
	}

	records, err := s.store.ListByOwner(ctx, ownerID, false)
	if err != nil {
		return core.AnalyticsView{}, fmt.Errorf("list expenses for analytics: %w", err)
	}

	view := core.ComputeAnalytics(records, core.NewWindow(time.Now().UTC(), period))
	s.analytics.Set(key, view)
	return view, nil
}

// Advice forwards the question to the language service together with the
// owner's full history.
func (s *ExpenseService) Advice(ctx context.Context, ownerID, query string) (string, error) {
	records, err := s.store.ListByOwner(ctx, ownerID, true)
	if err != nil {
		return "", fmt.Errorf("list expenses for advice: %w", err)
	}
	return s.advisor.Advise(ctx, query, records)
}

// AnalyticsCache exposes the cache for lifecycle management in main.
func (s *ExpenseService) AnalyticsCache() *cache.LRUCache[core.AnalyticsView] {
	return s.analytics
}

func (s *ExpenseService) invalidateAnalytics(ownerID string) {
	s.analytics.DeletePrefix(ownerID + "|")
}

// publishEvent is best effort: a broker outage never fails the request, the
// record is already safe in the store.
func (s *ExpenseService) publishEvent(ctx context.Context, eventType, id, ownerID string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping expense event",
			"type", eventType, "id", id)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, eventType, id, ownerID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", eventType, "id", id, "error", err)
	}
}

func analyticsKey(ownerID string, period time.Duration) string {
	return ownerID + "|" + period.String()
}
