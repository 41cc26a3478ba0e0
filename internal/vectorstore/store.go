package vectorstore

import (
	"context"
	"fmt"
	"hash/fnv"

	"legal-rag/internal/models"
)

// Record is one chunk plus its embedding vector, ready to persist.
// Records are never mutated in place; re-indexing replaces them.
type Record struct {
	Chunk  models.Chunk
	Vector []float32
}

// Store is the per-collection vector store contract. Implementations
// must tolerate concurrent Upsert calls for distinct
// (parent_id, chunk_index) keys.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, topK int) ([]models.SearchResult, error)
	Info(ctx context.Context) (models.CollectionInfo, error)
	DeleteCollection(ctx context.Context) (bool, error)
}

// DedupeKey is the identity of a chunk within its collection.
func DedupeKey(parentID string, chunkIndex int) string {
	return fmt.Sprintf("%s:%d", parentID, chunkIndex)
}

// PointID derives the numeric store id from the dedupe key, so
// re-indexing the same source overwrites instead of duplicating.
func PointID(parentID string, chunkIndex int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(DedupeKey(parentID, chunkIndex)))
	return h.Sum64()
}
