package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"legal-rag/internal/config"
	"legal-rag/internal/embedding"
	"legal-rag/internal/errs"
	"legal-rag/internal/models"
	"legal-rag/internal/vectorstore"
)

// Merger answers a query by searching the enabled collections and
// assembling a bounded, citation-tagged context. Scores from different
// collections are never compared against each other; each collection
// contributes its own top matches and blocks are concatenated in the
// configured source order.
type Merger struct {
	embedder  embedding.Embedder
	caseStore vectorstore.Store
	lawStore  vectorstore.Store
	cfg       config.RetrievalConfig
}

func New(embedder embedding.Embedder, caseStore, lawStore vectorstore.Store, cfg config.RetrievalConfig) *Merger {
	return &Merger{embedder: embedder, caseStore: caseStore, lawStore: lawStore, cfg: cfg}
}

// Options selects which corpora to search. Zero-valued limits fall
// back to the configured defaults.
type Options struct {
	UseCases        bool
	UseLaws         bool
	TopKPerSource   int
	MaxContextChars int
}

// Result is the merged retrieval outcome. Warnings report sources that
// were requested but could not contribute; they never carry partial
// text into Context.
type Result struct {
	Context   string
	Citations []string
	Warnings  []string
}

type sourceHits struct {
	name string
	hits []models.SearchResult
	err  error
}

// Retrieve embeds the query once and searches the enabled sources
// concurrently. A failing source degrades to a warning; only an
// embedding failure is fatal, since without a query vector there is
// nothing to search with.
func (m *Merger) Retrieve(ctx context.Context, query string, opts Options) (Result, error) {
	if !opts.UseCases && !opts.UseLaws {
		return Result{}, nil
	}
	if strings.TrimSpace(query) == "" {
		return Result{}, errs.Validation("query", "must not be empty")
	}
	topK := opts.TopKPerSource
	if topK <= 0 {
		topK = m.cfg.TopKPerSource
	}
	budget := opts.MaxContextChars
	if budget <= 0 {
		budget = m.cfg.MaxContextChars
	}

	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return Result{}, fmt.Errorf("embedding query: %w", err)
	}

	searches := make(map[string]vectorstore.Store, 2)
	if opts.UseCases {
		searches["cases"] = m.caseStore
	}
	if opts.UseLaws {
		searches["laws"] = m.lawStore
	}

	results := make(chan sourceHits, len(searches))
	var wg sync.WaitGroup
	for name, store := range searches {
		wg.Add(1)
		go func(name string, store vectorstore.Store) {
			defer wg.Done()
			hits, err := store.Search(ctx, vector, topK)
			results <- sourceHits{name: name, hits: hits, err: err}
		}(name, store)
	}
	wg.Wait()
	close(results)

	bySource := make(map[string][]models.SearchResult, len(searches))
	var warnings []string
	for r := range results {
		if r.err != nil {
			log.Warn().Err(r.err).Str("source", r.name).Msg("Source search failed, degrading")
			warnings = append(warnings, fmt.Sprintf("%s source unavailable: %v", r.name, r.err))
			continue
		}
		bySource[r.name] = r.hits
	}

	var (
		parts     []string
		citations []string
		seen      = map[string]bool{}
		used      = 0
	)
	for _, name := range m.sourceOrder() {
		hits, ok := bySource[name]
		if !ok {
			continue
		}
		for _, block := range buildBlocks(name, hits) {
			cost := len(block.text)
			if len(parts) > 0 {
				cost += len(blockSeparator)
			}
			if used+cost > budget {
				log.Debug().Str("citation", block.citation).Int("size", len(block.text)).Msg("Context budget reached, block dropped")
				continue
			}
			parts = append(parts, block.text)
			used += cost
			if !seen[block.citation] {
				seen[block.citation] = true
				citations = append(citations, block.citation)
			}
		}
	}

	return Result{
		Context:   strings.Join(parts, blockSeparator),
		Citations: citations,
		Warnings:  warnings,
	}, nil
}

const blockSeparator = "\n\n---\n\n"

// sourceOrder returns the configured order restricted to known names.
func (m *Merger) sourceOrder() []string {
	order := make([]string, 0, 2)
	for _, name := range m.cfg.SourceOrder {
		if name == "cases" || name == "laws" {
			order = append(order, name)
		}
	}
	if len(order) == 0 {
		order = []string{"cases", "laws"}
	}
	return order
}

type block struct {
	text     string
	citation string
}

// buildBlocks groups one source's hits by parent document and renders
// one context block per parent. Chunks of the same parent are merged
// in index order so a document retrieved in pieces is cited once and
// reads as continuous text.
func buildBlocks(source string, hits []models.SearchResult) []block {
	type group struct {
		best   float64
		first  int
		chunks []models.Chunk
	}
	groups := make(map[string]*group)
	var order []string
	for i, h := range hits {
		g, ok := groups[h.Chunk.ParentID]
		if !ok {
			g = &group{best: h.Score, first: i}
			groups[h.Chunk.ParentID] = g
			order = append(order, h.Chunk.ParentID)
		}
		if h.Score > g.best {
			g.best = h.Score
		}
		g.chunks = append(g.chunks, h.Chunk)
	}
	// best-scoring parent first; arrival order breaks ties
	sort.SliceStable(order, func(i, j int) bool {
		gi, gj := groups[order[i]], groups[order[j]]
		if gi.best != gj.best {
			return gi.best > gj.best
		}
		return gi.first < gj.first
	})

	blocks := make([]block, 0, len(order))
	for _, id := range order {
		g := groups[id]
		sort.Slice(g.chunks, func(i, j int) bool { return g.chunks[i].Index < g.chunks[j].Index })
		body := mergeChunks(g.chunks)
		blocks = append(blocks, block{
			text:     renderBlock(source, g.chunks[0], body),
			citation: g.chunks[0].Citation(),
		})
	}
	return blocks
}

// mergeChunks joins same-parent chunks in index order. Consecutive
// chunks overlap by construction, so the join strips the largest
// suffix/prefix match; a gap in the index sequence is marked with an
// ellipsis line instead of pretending the text is continuous.
func mergeChunks(chunks []models.Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c.Text)
			continue
		}
		if c.Index == chunks[i-1].Index {
			continue // duplicate hit on the same chunk
		}
		if c.Index != chunks[i-1].Index+1 {
			b.WriteString("\n...\n")
			b.WriteString(c.Text)
			continue
		}
		b.WriteString(c.Text[overlapLen(b.String(), c.Text):])
	}
	return b.String()
}

// overlapLen returns the length of the largest suffix of prev that is
// also a prefix of next.
func overlapLen(prev, next string) int {
	max := len(prev)
	if len(next) < max {
		max = len(next)
	}
	for k := max; k > 0; k-- {
		if strings.HasSuffix(prev, next[:k]) {
			return k
		}
	}
	return 0
}

// renderBlock formats one parent's merged text with its source-shaped
// header so the generation layer sees the same framing the embeddings
// were built from.
func renderBlock(source string, c models.Chunk, body string) string {
	if source == "laws" {
		return fmt.Sprintf("Part Section: %s\nLaw Text: %s", c.Reference, body)
	}
	return fmt.Sprintf("Case Title: %s\nDivision: %s\nLaw Category: %s\nLaw Act: %s\nReference: %s\nCase Details: %s",
		c.ParentTitle, c.Division, c.LawCategory, c.LawAct, c.Reference, body)
}
