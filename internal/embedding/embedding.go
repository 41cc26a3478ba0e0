package embedding

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"legal-rag/internal/config"
	"legal-rag/internal/errs"
)

// Embedder converts text into fixed-length vectors. Query and batch
// embeddings come from the same model space, so one query vector can be
// searched against every collection.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Gateway is a stateless adapter over a langchaingo embedder. It owns
// input validation and error classification; retry policy stays with
// the caller.
type Gateway struct {
	embedder *embeddings.EmbedderImpl
}

func NewGateway(cfg config.EmbedderConfig) (*Gateway, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 25
	}
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(batch), embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return &Gateway{embedder: embedder}, nil
}

func newClient(cfg config.EmbedderConfig) (embeddings.EmbedderClient, error) {
	switch cfg.Provider {
	case "googleai", "gemini":
		return googleai.New(context.Background(),
			googleai.WithAPIKey(os.Getenv(cfg.APIKeyEnv)),
			googleai.WithDefaultEmbeddingModel(cfg.Model),
		)
	case "openai":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(os.Getenv(cfg.APIKeyEnv), "Bearer ")),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case "ollama":
		return ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		return nil, errs.Validation("embedder.provider", fmt.Sprintf("unsupported provider %q", cfg.Provider))
	}
}

// Embed returns the embedding vector for a single text.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errs.Validation("text", "must not be empty")
	}
	vec, err := g.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, errs.Embedding(err)
	}
	return vec, nil
}

// EmbedBatch embeds texts in provider-sized batches, preserving order.
// The result always has one vector per input text.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, errs.Validation("texts", fmt.Sprintf("text %d must not be empty", i))
		}
	}
	vecs, err := g.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, errs.Embedding(err)
	}
	if len(vecs) != len(texts) {
		return nil, errs.Embedding(fmt.Errorf("got %d vectors for %d texts", len(vecs), len(texts)))
	}
	return vecs, nil
}
