package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/circuitlens/circuitlens/core/analyzer"
	"github.com/circuitlens/circuitlens/core/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(classification string) *engine.Report {
	return &engine.Report{
		Language:       "openqasm",
		SourceHash:     "abc123",
		Classification: classification,
		Confidence:     0.95,
		Complexity: &analyzer.Metrics{
			QubitCount:   3,
			CircuitDepth: 6,
			BigOEstimate: "O(1)",
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleReport("qft"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Classification != "qft" || rec.Language != "openqasm" || rec.Confidence != 0.95 {
		t.Fatalf("record = %+v", rec)
	}
	var m analyzer.Metrics
	if err := json.Unmarshal(rec.Metrics, &m); err != nil {
		t.Fatalf("metrics decode: %v", err)
	}
	if m.QubitCount != 3 || m.CircuitDepth != 6 {
		t.Fatalf("metrics = %+v", m)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); err != sql.ErrNoRows {
		t.Fatalf("err = %v, want sql.ErrNoRows", err)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	labels := []string{"qft", "grover", "bell_state", "unclassified"}
	for _, l := range labels {
		if _, err := s.Save(ctx, sampleReport(l)); err != nil {
			t.Fatalf("Save(%s): %v", l, err)
		}
	}

	records, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}

	all, err := s.Recent(ctx, 100)
	if err != nil {
		t.Fatalf("Recent all: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("len = %d, want 4", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("records not newest-first: %v then %v", all[i-1].CreatedAt, all[i].CreatedAt)
		}
	}

	n, err := s.Count(ctx)
	if err != nil || n != 4 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestSaveWithoutMetrics(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	r := sampleReport("unclassified")
	r.Complexity = nil
	id, err := s.Save(ctx, r)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Metrics != nil {
		t.Fatalf("metrics = %s, want empty", rec.Metrics)
	}
}
