package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"legal-rag/internal/errs"
)

const (
	DefaultChunkSize = 8000
	DefaultOverlap   = 200
)

// separators in decreasing granularity: paragraph, line, sentence,
// word. A hard character cut is the last resort.
var separators = []string{"\n\n", "\n", ". ", " "}

// Chunker splits text into overlapping segments along natural
// boundaries. Every chunk is an exact substring of the input, so
// identical input and parameters always produce identical boundaries.
type Chunker struct {
	chunkSize int
	overlap   int
}

func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split returns the ordered chunks of text. Whitespace-only input
// yields no chunks; input within the chunk size passes through as a
// single chunk.
func (c *Chunker) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if len(text) <= c.chunkSize {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		if len(text)-start <= c.chunkSize {
			chunks = append(chunks, text[start:])
			break
		}
		end := c.cutPoint(text, start)
		if end <= start {
			return nil, fmt.Errorf("%w: no forward progress at offset %d", errs.ErrChunking, start)
		}
		chunks = append(chunks, text[start:end])

		next := end - c.overlap
		// keep the overlap window on a rune boundary
		for next > start && !utf8.RuneStart(text[next]) {
			next--
		}
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks, nil
}

// cutPoint picks the end of the chunk starting at start. It prefers the
// latest separator within the trailing half of the window so chunks
// never degenerate; failing that it cuts at the size limit on a rune
// boundary.
func (c *Chunker) cutPoint(text string, start int) int {
	limit := start + c.chunkSize
	floor := start + c.chunkSize/2
	window := text[floor:limit]
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i >= 0 {
			return floor + i + len(sep)
		}
	}
	for limit > floor && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return limit
}
