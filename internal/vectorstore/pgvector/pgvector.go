package pgvector

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"legal-rag/internal/errs"
	"legal-rag/internal/models"
	"legal-rag/internal/vectorstore"
)

// chunkRow is one chunk record in the shared legal_chunks table.
// Collections share the table and are told apart by the collection
// column; the unique key (collection, parent_id, chunk_index) makes
// upserts idempotent.
type chunkRow struct {
	bun.BaseModel `bun:"table:legal_chunks,alias:c"`

	ID          int64     `bun:"id,pk"`
	Collection  string    `bun:"collection,notnull"`
	ParentID    string    `bun:"parent_id,notnull"`
	ParentTitle string    `bun:"parent_title"`
	Division    string    `bun:"division"`
	LawCategory string    `bun:"law_category"`
	LawAct      string    `bun:"law_act"`
	Reference   string    `bun:"reference"`
	ChunkIndex  int       `bun:"chunk_index,notnull"`
	TotalChunks int       `bun:"total_chunks,notnull"`
	IsChunked   bool      `bun:"is_chunked,notnull"`
	Text        string    `bun:"text,notnull"`
	Embedding   string    `bun:"embedding,notnull,type:vector"`
	Score       float64   `bun:"score,scanonly"`
}

// Store adapts one logical collection inside a pgvector-enabled
// Postgres database.
type Store struct {
	db         *bun.DB
	collection string
	dimension  int
}

type Config struct {
	DSN        string
	Collection string
	Debug      bool
}

func Connect(cfg Config) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return &Store{db: db, collection: cfg.Collection}, nil
}

// Init creates the extension, table and dedupe index. Safe to run on
// every startup.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errs.Validation("dimension", "must be positive")
	}
	s.dimension = dimension
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return errs.Store(err)
	}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS legal_chunks (
		id BIGINT PRIMARY KEY,
		collection TEXT NOT NULL,
		parent_id TEXT NOT NULL,
		parent_title TEXT,
		division TEXT,
		law_category TEXT,
		law_act TEXT,
		reference TEXT,
		chunk_index INT NOT NULL,
		total_chunks INT NOT NULL,
		is_chunked BOOLEAN NOT NULL,
		text TEXT NOT NULL,
		embedding vector(%d) NOT NULL
	)`, dimension)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return errs.Store(err)
	}
	_, err := s.db.ExecContext(ctx,
		"CREATE UNIQUE INDEX IF NOT EXISTS legal_chunks_dedupe ON legal_chunks (collection, parent_id, chunk_index)")
	if err != nil {
		return errs.Store(err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, records []vectorstore.Record) error {
	if len(records) == 0 {
		return nil
	}
	if s.dimension == 0 {
		if err := s.Init(ctx, len(records[0].Vector)); err != nil {
			return err
		}
	}
	rows := make([]chunkRow, len(records))
	for i, r := range records {
		c := r.Chunk
		rows[i] = chunkRow{
			ID:          int64(vectorstore.PointID(c.ParentID, c.Index)),
			Collection:  s.collection,
			ParentID:    c.ParentID,
			ParentTitle: c.ParentTitle,
			Division:    c.Division,
			LawCategory: c.LawCategory,
			LawAct:      c.LawAct,
			Reference:   c.Reference,
			ChunkIndex:  c.Index,
			TotalChunks: c.Total,
			IsChunked:   c.IsChunked,
			Text:        c.Text,
			Embedding:   formatVector(r.Vector),
		}
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (collection, parent_id, chunk_index) DO UPDATE").
		Set("total_chunks = EXCLUDED.total_chunks").
		Set("is_chunked = EXCLUDED.is_chunked").
		Set("text = EXCLUDED.text").
		Set("embedding = EXCLUDED.embedding").
		Exec(ctx)
	if err != nil {
		return errs.Store(err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error) {
	if topK <= 0 {
		return nil, errs.Validation("top_k", "must be a positive integer")
	}
	vec := formatVector(vector)
	var rows []chunkRow
	err := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("c.*").
		ColumnExpr("1 - (embedding <=> ?::vector) AS score", vec).
		Where("collection = ?", s.collection).
		OrderExpr("embedding <=> ?::vector", vec).
		Limit(topK).
		Scan(ctx)
	if err != nil {
		return nil, errs.Store(err)
	}
	results := make([]models.SearchResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, models.SearchResult{
			ID:    uint64(r.ID),
			Score: r.Score,
			Chunk: models.Chunk{
				ParentID:    r.ParentID,
				ParentTitle: r.ParentTitle,
				Division:    r.Division,
				LawCategory: r.LawCategory,
				LawAct:      r.LawAct,
				Reference:   r.Reference,
				Index:       r.ChunkIndex,
				Total:       r.TotalChunks,
				IsChunked:   r.IsChunked,
				Text:        r.Text,
			},
		})
	}
	return results, nil
}

func (s *Store) Info(ctx context.Context) (models.CollectionInfo, error) {
	count, err := s.db.NewSelect().
		Model((*chunkRow)(nil)).
		Where("collection = ?", s.collection).
		Count(ctx)
	if err != nil {
		return models.CollectionInfo{}, errs.Store(err)
	}
	return models.CollectionInfo{
		Name:      s.collection,
		Records:   count,
		Dimension: s.dimension,
	}, nil
}

func (s *Store) DeleteCollection(ctx context.Context) (bool, error) {
	_, err := s.db.NewDelete().
		Model((*chunkRow)(nil)).
		Where("collection = ?", s.collection).
		Exec(ctx)
	if err != nil {
		return false, errs.Store(err)
	}
	return true, nil
}

func (s *Store) Close() error { return s.db.Close() }

// formatVector renders an embedding as a pgvector literal.
func formatVector(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
