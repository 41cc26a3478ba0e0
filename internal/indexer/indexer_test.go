package indexer

import (
	"context"
	"encoding/json"
	"testing"

	"legal-rag/internal/chunker"
	"legal-rag/internal/errs"
	"legal-rag/internal/models"
	"legal-rag/internal/vectorstore"
)

type fakeEmbedder struct {
	calls int
	fail  bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.fail {
		return nil, errs.Embedding(context.DeadlineExceeded)
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.fail {
		return nil, errs.Embedding(context.DeadlineExceeded)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

type fakeStore struct {
	records []vectorstore.Record
	fail    bool
}

func (f *fakeStore) Upsert(ctx context.Context, recs []vectorstore.Record) error {
	if f.fail {
		return errs.Store(context.DeadlineExceeded)
	}
	f.records = append(f.records, recs...)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	return nil, nil
}

func (f *fakeStore) Info(ctx context.Context) (models.CollectionInfo, error) {
	return models.CollectionInfo{Records: len(f.records)}, nil
}

func (f *fakeStore) DeleteCollection(ctx context.Context) (bool, error) {
	f.records = nil
	return true, nil
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestAddRecordsIndexesCases(t *testing.T) {
	store := &fakeStore{}
	ix := New(CaseSource{}, chunker.New(8000, 200), &fakeEmbedder{}, store)

	raws := []json.RawMessage{
		raw(t, map[string]string{
			"case-title":   "X vs Y",
			"case-details": "The tribunal has jurisdiction.",
			"division":     "Appellate Division",
		}),
	}
	n, err := ix.AddRecords(context.Background(), raws)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 indexed, got %d", n)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected 1 stored chunk, got %d", len(store.records))
	}
	c := store.records[0].Chunk
	if c.ParentTitle != "X vs Y" || c.Division != "Appellate Division" {
		t.Fatalf("metadata not carried: %+v", c)
	}
	if c.Index != 0 || c.Total != 1 || c.IsChunked {
		t.Fatalf("single-chunk tagging wrong: %+v", c)
	}
}

func TestRejectedRecordDoesNotAbortBatch(t *testing.T) {
	store := &fakeStore{}
	ix := New(CaseSource{}, chunker.New(8000, 200), &fakeEmbedder{}, store)

	raws := []json.RawMessage{
		raw(t, map[string]string{"case-details": "missing title"}),
		raw(t, map[string]string{"case-title": "A vs B", "case-details": "Valid body."}),
		raw(t, map[string]string{"case-title": "No body"}),
	}
	n, err := ix.AddRecords(context.Background(), raws)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 indexed of 3, got %d", n)
	}
}

func TestLargeCaseIsChunkedWithSharedMetadata(t *testing.T) {
	store := &fakeStore{}
	ix := New(CaseSource{}, chunker.New(500, 60), &fakeEmbedder{}, store)

	body := ""
	for i := 0; i < 40; i++ {
		body += "The appellate division considered the question of jurisdiction. "
	}
	raws := []json.RawMessage{
		raw(t, map[string]string{"case-title": "X vs Y", "case-details": body, "division": "Appellate Division"}),
	}
	n, err := ix.AddRecords(context.Background(), raws)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 parent indexed, got %d", n)
	}
	if len(store.records) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(store.records))
	}
	total := len(store.records)
	for i, r := range store.records {
		c := r.Chunk
		if c.Index != i || c.Total != total || !c.IsChunked {
			t.Fatalf("chunk %d mistagged: %+v", i, c)
		}
		if c.ParentID != store.records[0].Chunk.ParentID || c.Division != "Appellate Division" {
			t.Fatalf("chunk %d lost parent metadata: %+v", i, c)
		}
	}
}

func TestEmbeddingFailureSkipsRecord(t *testing.T) {
	store := &fakeStore{}
	ix := New(LawSource{}, chunker.New(1000, 100), &fakeEmbedder{fail: true}, store)

	raws := []json.RawMessage{
		raw(t, map[string]string{"part_section": "Act I Section 2", "law_text": "Provision text."}),
	}
	n, err := ix.AddRecords(context.Background(), raws)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || len(store.records) != 0 {
		t.Fatalf("expected nothing indexed, got n=%d records=%d", n, len(store.records))
	}
}

func TestStoreFailureAbortsBatch(t *testing.T) {
	ix := New(LawSource{}, chunker.New(1000, 100), &fakeEmbedder{}, &fakeStore{fail: true})

	raws := []json.RawMessage{
		raw(t, map[string]string{"part_section": "Act I Section 1", "law_text": "First."}),
		raw(t, map[string]string{"part_section": "Act I Section 2", "law_text": "Second."}),
	}
	n, err := ix.AddRecords(context.Background(), raws)
	if err == nil {
		t.Fatal("expected store error")
	}
	if n != 0 {
		t.Fatalf("expected 0 indexed, got %d", n)
	}
}

func TestLawFraming(t *testing.T) {
	src := LawSource{}
	single := models.Chunk{Reference: "Act I Section 1", Index: 0, Total: 1, Text: "body"}
	if got := src.Frame(single); got != "Part Section: Act I Section 1\nLaw Text: body" {
		t.Fatalf("unexpected framing: %q", got)
	}
	chunked := models.Chunk{Reference: "Act I Section 1", Index: 1, Total: 3, IsChunked: true, Text: "body"}
	if got := src.Frame(chunked); got != "Part Section: Act I Section 1\nLaw Text (Chunk 2/3): body" {
		t.Fatalf("unexpected framing: %q", got)
	}
}
