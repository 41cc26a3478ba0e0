package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"legal-rag/internal/chunker"
	"legal-rag/internal/embedding"
	"legal-rag/internal/models"
	"legal-rag/internal/vectorstore"
)

// Indexer runs one corpus's ingestion pipeline: normalize, chunk,
// embed, upsert. Malformed records are rejected and logged without
// stopping the batch; only a failing store aborts it.
type Indexer struct {
	source   Source
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	store    vectorstore.Store
}

func New(source Source, ch *chunker.Chunker, embedder embedding.Embedder, store vectorstore.Store) *Indexer {
	return &Indexer{source: source, chunker: ch, embedder: embedder, store: store}
}

// AddRecords indexes raw records and returns the number of parent
// units successfully indexed.
func (ix *Indexer) AddRecords(ctx context.Context, raws []json.RawMessage) (int, error) {
	indexed := 0
	for i, raw := range raws {
		unit, err := ix.source.Normalize(raw)
		if err != nil {
			log.Warn().Err(err).Int("record", i).Str("source", ix.source.Name()).Msg("Rejected record")
			continue
		}
		pieces, err := ix.chunker.Split(unit.Body)
		if err != nil {
			log.Error().Err(err).Str("parent", unit.Title).Msg("Chunking failed, record skipped")
			continue
		}
		if len(pieces) == 0 {
			log.Warn().Int("record", i).Str("parent", unit.Title).Msg("Empty body, nothing to index")
			continue
		}

		chunks := make([]models.Chunk, len(pieces))
		texts := make([]string, len(pieces))
		for j, p := range pieces {
			chunks[j] = models.Chunk{
				ParentID:    unit.ID,
				ParentTitle: unit.Title,
				Division:    unit.Division,
				LawCategory: unit.LawCategory,
				LawAct:      unit.LawAct,
				Reference:   unit.Reference,
				Index:       j,
				Total:       len(pieces),
				IsChunked:   len(pieces) > 1,
				Text:        p,
			}
			texts[j] = ix.source.Frame(chunks[j])
		}

		vectors, err := ix.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			log.Error().Err(err).Str("parent", unit.Title).Msg("Embedding failed, record skipped")
			continue
		}

		records := make([]vectorstore.Record, len(chunks))
		for j := range chunks {
			records[j] = vectorstore.Record{Chunk: chunks[j], Vector: vectors[j]}
		}
		if err := ix.store.Upsert(ctx, records); err != nil {
			// a dead store fails every following record too
			return indexed, fmt.Errorf("upserting %q: %w", unit.Title, err)
		}
		indexed++
		log.Debug().Str("parent", unit.Title).Int("chunks", len(chunks)).Msg("Indexed")
	}
	log.Info().Str("source", ix.source.Name()).Int("indexed", indexed).Int("total", len(raws)).Msg("Batch complete")
	return indexed, nil
}

// AddFile loads a JSON array of records and indexes it.
func (ix *Indexer) AddFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	log.Info().Str("file", path).Int("records", len(raws)).Msg("Loaded source file")
	return ix.AddRecords(ctx, raws)
}

// AddFiles indexes several source files in order.
func (ix *Indexer) AddFiles(ctx context.Context, paths []string) (int, error) {
	total := 0
	for _, p := range paths {
		n, err := ix.AddFile(ctx, p)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
