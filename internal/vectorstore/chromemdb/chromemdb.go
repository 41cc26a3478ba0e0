package chromemdb

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"

	"legal-rag/internal/errs"
	"legal-rag/internal/models"
	"legal-rag/internal/vectorstore"
)

// Store adapts an embedded chromem-go collection to the vector store
// contract. Documents are keyed by the (parent_id, chunk_index) dedupe
// key, so re-adding the same chunk overwrites it.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	name       string
	dimension  int
}

type Config struct {
	Path       string
	InMemory   bool
	Collection string
	Compress   bool
}

func New(cfg Config) (*Store, error) {
	var db *chromem.DB
	var err error
	if cfg.InMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("opening chromem db: %w", err)
		}
	}
	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", cfg.Collection, err)
	}
	return &Store{db: db, collection: collection, name: cfg.Collection}, nil
}

func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        vectorstore.DedupeKey(r.Chunk.ParentID, r.Chunk.Index),
			Content:   r.Chunk.Text,
			Metadata:  metadataFromChunk(r.Chunk),
			Embedding: r.Vector,
		}
	}
	s.dimension = len(records[0].Vector)
	if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return errs.Store(err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, errs.Validation("top_k", "must be a positive integer")
	}
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	res, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       topK,
	})
	if err != nil {
		return nil, errs.Store(err)
	}
	results := make([]models.SearchResult, 0, len(res))
	for _, r := range res {
		chunk := chunkFromMetadata(r.Metadata)
		chunk.Text = r.Content
		results = append(results, models.SearchResult{
			ID:    vectorstore.PointID(chunk.ParentID, chunk.Index),
			Score: float64(r.Similarity),
			Chunk: chunk,
		})
	}
	return results, nil
}

func (s *Store) Info(ctx context.Context) (models.CollectionInfo, error) {
	return models.CollectionInfo{
		Name:      s.name,
		Records:   s.collection.Count(),
		Dimension: s.dimension,
	}, nil
}

func (s *Store) DeleteCollection(ctx context.Context) (bool, error) {
	if err := s.db.DeleteCollection(s.name); err != nil {
		return false, errs.Store(err)
	}
	collection, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return true, errs.Store(err)
	}
	s.collection = collection
	s.dimension = 0
	return true, nil
}

func metadataFromChunk(c models.Chunk) map[string]string {
	return map[string]string{
		"parent_id":    c.ParentID,
		"parent_title": c.ParentTitle,
		"division":     c.Division,
		"law_category": c.LawCategory,
		"law_act":      c.LawAct,
		"reference":    c.Reference,
		"chunk_index":  strconv.Itoa(c.Index),
		"total_chunks": strconv.Itoa(c.Total),
		"is_chunked":   strconv.FormatBool(c.IsChunked),
	}
}

func chunkFromMetadata(m map[string]string) models.Chunk {
	c := models.Chunk{
		ParentID:    m["parent_id"],
		ParentTitle: m["parent_title"],
		Division:    m["division"],
		LawCategory: m["law_category"],
		LawAct:      m["law_act"],
		Reference:   m["reference"],
		Total:       1,
	}
	if v, err := strconv.Atoi(m["chunk_index"]); err == nil {
		c.Index = v
	}
	if v, err := strconv.Atoi(m["total_chunks"]); err == nil {
		c.Total = v
	}
	if v, err := strconv.ParseBool(m["is_chunked"]); err == nil {
		c.IsChunked = v
	}
	return c
}
