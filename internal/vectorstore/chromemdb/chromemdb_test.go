package chromemdb

import (
	"context"
	"testing"

	"legal-rag/internal/errs"
	"legal-rag/internal/models"
	"legal-rag/internal/vectorstore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{InMemory: true, Collection: "cases_test"})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func record(parentID string, index, total int, text string, vec []float32) vectorstore.Record {
	return vectorstore.Record{
		Chunk: models.Chunk{
			ParentID:    parentID,
			ParentTitle: "X vs Y",
			Division:    "Appellate Division",
			Index:       index,
			Total:       total,
			IsChunked:   total > 1,
			Text:        text,
		},
		Vector: vec,
	}
}

func TestUpsertAndSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []vectorstore.Record{
		record("case-1", 0, 2, "tribunal jurisdiction", []float32{1, 0, 0}),
		record("case-1", 1, 2, "service matters appeal", []float32{0, 1, 0}),
	}
	if err := s.Upsert(ctx, recs); err != nil {
		t.Fatal(err)
	}

	results, err := s.Search(ctx, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := results[0]
	if got.Chunk.ParentTitle != "X vs Y" || got.Chunk.Index != 0 || !got.Chunk.IsChunked {
		t.Fatalf("metadata round-trip failed: %+v", got.Chunk)
	}
	if got.Chunk.Text != "tribunal jurisdiction" {
		t.Fatalf("unexpected text %q", got.Chunk.Text)
	}
	if got.ID != vectorstore.PointID("case-1", 0) {
		t.Fatalf("unexpected id %d", got.ID)
	}
}

func TestIdempotentUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []vectorstore.Record{record("case-1", 0, 1, "tribunal jurisdiction", []float32{1, 0, 0})}
	if err := s.Upsert(ctx, recs); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, recs); err != nil {
		t.Fatal(err)
	}
	info, err := s.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Records != 1 {
		t.Fatalf("re-indexing duplicated records: count %d", info.Records)
	}
	if info.Dimension != 3 {
		t.Fatalf("expected dimension 3, got %d", info.Dimension)
	}
}

func TestSearchValidation(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Search(context.Background(), []float32{1}, 0); !errs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearchEmptyCollection(t *testing.T) {
	s := newTestStore(t)
	results, err := s.Search(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestDeleteCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, []vectorstore.Record{record("case-1", 0, 1, "text", []float32{0, 0, 1})}); err != nil {
		t.Fatal(err)
	}
	ok, err := s.DeleteCollection(ctx)
	if err != nil || !ok {
		t.Fatalf("expected delete success, got %v %v", ok, err)
	}
	info, err := s.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if info.Records != 0 {
		t.Fatalf("expected empty collection after delete, got %d records", info.Records)
	}
}
