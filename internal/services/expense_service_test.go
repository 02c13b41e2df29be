package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"expensio/internal/ai"
	"expensio/internal/core"
)

type stubStore struct {
	records   map[string]core.ExpenseRecord
	nextID    int
	listCalls int
}

func newStubStore() *stubStore {
	return &stubStore{records: make(map[string]core.ExpenseRecord)}
}

func (s *stubStore) Create(_ context.Context, ownerID string, rec core.ExpenseRecord) (string, error) {
	s.nextID++
	id := fmt.Sprintf("id-%d", s.nextID)
	now := time.Now().UTC()
	rec.ID = id
	rec.OwnerID = ownerID
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.records[id] = rec
	return id, nil
}

func (s *stubStore) ListByOwner(_ context.Context, ownerID string, _ bool) ([]core.ExpenseRecord, error) {
	s.listCalls++
	var out []core.ExpenseRecord
	for _, rec := range s.records {
		if rec.OwnerID == ownerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubStore) GetByID(_ context.Context, id, ownerID string) (*core.ExpenseRecord, error) {
	rec, ok := s.records[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, core.ErrNotFound
	}
	return &rec, nil
}

func (s *stubStore) UpdateByID(_ context.Context, id, ownerID string, patch core.RecordPatch) (*core.ExpenseRecord, error) {
	rec, ok := s.records[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, core.ErrNotFound
	}
	patch.Apply(&rec)
	rec.UpdatedAt = time.Now().UTC()
	s.records[id] = rec
	return &rec, nil
}

func (s *stubStore) DeleteByID(_ context.Context, id, ownerID string) (*core.ExpenseRecord, error) {
	rec, ok := s.records[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, core.ErrNotFound
	}
	delete(s.records, id)
	return &rec, nil
}

type stubParser struct {
	draft ai.Draft
	err   error
}

func (p *stubParser) Parse(context.Context, string) (ai.Draft, error) {
	return p.draft, p.err
}

type stubAdvisor struct {
	message  string
	gotQuery string
	gotCount int
}

func (a *stubAdvisor) Advise(_ context.Context, query string, expenses []core.ExpenseRecord) (string, error) {
	a.gotQuery = query
	a.gotCount = len(expenses)
	return a.message, nil
}

type stubPublisher struct {
	events []string
	err    error
}

func (p *stubPublisher) PublishExpenseEvent(_ context.Context, eventType, id, _ string) error {
	p.events = append(p.events, eventType+":"+id)
	return p.err
}

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func coffeeDraft() ai.Draft {
	return ai.Draft{
		Amount:      f64(150),
		Category:    str("Food"),
		Description: str("Coffee at Starbucks"),
		Merchant:    str("Starbucks"),
	}
}

func TestIngestPipeline(t *testing.T) {
	store := newStubStore()
	pub := &stubPublisher{}
	svc := NewExpenseService(store, &stubParser{draft: coffeeDraft()}, &stubAdvisor{}, pub)

	rec, err := svc.Ingest(context.Background(), "owner-1", "Coffee 150 at Starbucks")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if rec.ID == "" || rec.OwnerID != "owner-1" {
		t.Fatalf("record = %+v, store must assign id and owner", rec)
	}
	if rec.Amount.Cents != 15000 {
		t.Errorf("amount = %d cents, want 15000", rec.Amount.Cents)
	}
	if rec.RawInput != "Coffee 150 at Starbucks" {
		t.Errorf("rawInput = %q, original text must be preserved verbatim", rec.RawInput)
	}
	if len(pub.events) != 1 || pub.events[0] != "created:"+rec.ID {
		t.Errorf("events = %v, want one created event", pub.events)
	}
}

func TestIngestRejectsInvalidDraft(t *testing.T) {
	store := newStubStore()
	draft := coffeeDraft()
	draft.Amount = f64(-5)
	draft.Category = str("Groceries")
	svc := NewExpenseService(store, &stubParser{draft: draft}, &stubAdvisor{}, &stubPublisher{})

	_, err := svc.Ingest(context.Background(), "owner-1", "groceries -5")
	var verrs core.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error = %v, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Fatalf("violations = %v, want both amount and category reported", verrs)
	}
	if len(store.records) != 0 {
		t.Fatal("an invalid draft must never be persisted, not even partially")
	}
}

func TestIngestParserFailurePropagates(t *testing.T) {
	upstream := &ai.UpstreamError{Op: "parse", Status: 502}
	svc := NewExpenseService(newStubStore(), &stubParser{err: upstream}, &stubAdvisor{}, &stubPublisher{})

	_, err := svc.Ingest(context.Background(), "owner-1", "lunch 12")
	var ue *ai.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("error = %v, want *ai.UpstreamError", err)
	}
}

func TestCreateSurvivesPublisherFailure(t *testing.T) {
	store := newStubStore()
	pub := &stubPublisher{err: errors.New("broker down")}
	svc := NewExpenseService(store, &stubParser{}, &stubAdvisor{}, pub)

	rec, err := svc.Create(context.Background(), "owner-1", coffeeDraft().CreateInput("Coffee 150"))
	if err != nil {
		t.Fatalf("Create() error = %v, broker failures must not fail the write", err)
	}
	if _, ok := store.records[rec.ID]; !ok {
		t.Fatal("record must be persisted despite publish failure")
	}
}

func TestCreateWithoutPublisher(t *testing.T) {
	svc := NewExpenseService(newStubStore(), &stubParser{}, &stubAdvisor{}, nil)
	if _, err := svc.Create(context.Background(), "owner-1", coffeeDraft().CreateInput("Coffee 150")); err != nil {
		t.Fatalf("Create() error = %v, nil publisher must be tolerated", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	store := newStubStore()
	pub := &stubPublisher{}
	svc := NewExpenseService(store, &stubParser{}, &stubAdvisor{}, pub)

	rec, err := svc.Create(context.Background(), "owner-1", coffeeDraft().CreateInput("Coffee 150"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := svc.Update(context.Background(), "owner-1", rec.ID, core.UpdateInput{Amount: f64(200)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Amount.Cents != 20000 {
		t.Errorf("amount = %d, want 20000", updated.Amount.Cents)
	}
	if updated.Description != "Coffee at Starbucks" {
		t.Errorf("description = %q, absent fields must be untouched", updated.Description)
	}

	if _, err := svc.Update(context.Background(), "owner-1", "missing", core.UpdateInput{Amount: f64(1)}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Update(missing) error = %v, want ErrNotFound", err)
	}

	deleted, err := svc.Delete(context.Background(), "owner-1", rec.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if deleted.ID != rec.ID {
		t.Errorf("deleted.ID = %q, want %q", deleted.ID, rec.ID)
	}

	want := []string{"created:" + rec.ID, "updated:" + rec.ID, "deleted:" + rec.ID}
	if len(pub.events) != len(want) {
		t.Fatalf("events = %v, want %v", pub.events, want)
	}
	for i := range want {
		if pub.events[i] != want[i] {
			t.Fatalf("events = %v, want %v", pub.events, want)
		}
	}
}

func TestAnalyticsCachedUntilWrite(t *testing.T) {
	store := newStubStore()
	svc := NewExpenseService(store, &stubParser{}, &stubAdvisor{}, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "owner-1", coffeeDraft().CreateInput("Coffee 150")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	store.listCalls = 0

	if _, err := svc.Analytics(ctx, "owner-1", 0); err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if _, err := svc.Analytics(ctx, "owner-1", 0); err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if store.listCalls != 1 {
		t.Fatalf("listCalls = %d, second read must hit the cache", store.listCalls)
	}

	// Any write by the owner invalidates their cached views.
	if _, err := svc.Create(ctx, "owner-1", coffeeDraft().CreateInput("Coffee again")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	view, err := svc.Analytics(ctx, "owner-1", 0)
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}
	if store.listCalls != 2 {
		t.Fatalf("listCalls = %d, write must invalidate the cache", store.listCalls)
	}
	if view.TotalSpent.Cents != 30000 {
		t.Fatalf("totalSpent = %d, want 30000", view.TotalSpent.Cents)
	}
}

func TestAdvice(t *testing.T) {
	store := newStubStore()
	advisor := &stubAdvisor{message: "Spend less on coffee."}
	svc := NewExpenseService(store, &stubParser{}, advisor, nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "owner-1", coffeeDraft().CreateInput("Coffee 150")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	msg, err := svc.Advice(ctx, "owner-1", "how do I save money?")
	if err != nil {
		t.Fatalf("Advice() error = %v", err)
	}
	if msg != "Spend less on coffee." {
		t.Errorf("message = %q", msg)
	}
	if advisor.gotQuery != "how do I save money?" || advisor.gotCount != 1 {
		t.Errorf("advisor got query=%q count=%d", advisor.gotQuery, advisor.gotCount)
	}
}
