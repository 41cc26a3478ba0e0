package chat

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"

	"legal-rag/internal/config"
	"legal-rag/internal/errs"
	"legal-rag/internal/models"
	"legal-rag/internal/retrieval"
)

// Request is one user turn. IsCaseRAG and IsLawRAG select which
// corpora ground the answer; with neither set the model answers from
// its own knowledge and no retrieval happens.
type Request struct {
	Message    string `json:"message"`
	LLMModelID string `json:"llm_model_id"`
	ThreadID   string `json:"thread_id"`
	IsCaseRAG  bool   `json:"is_case_rag"`
	IsLawRAG   bool   `json:"is_law_rag"`
}

// Response carries the generated answer with the citations that
// grounded it.
type Response struct {
	Response  string   `json:"response"`
	ThreadID  string   `json:"thread_id"`
	Citations []string `json:"citations,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Service wires retrieval into generation: retrieve, frame, generate.
type Service struct {
	merger *retrieval.Merger
	cfg    config.ChatConfig
}

func New(merger *retrieval.Merger, cfg config.ChatConfig) *Service {
	return &Service{merger: merger, cfg: cfg}
}

// Chat answers one request. Retrieval warnings degrade the grounding
// but never block generation.
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Response{}, errs.Validation("message", "must not be empty")
	}
	threadID := req.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	result, err := s.merger.Retrieve(ctx, req.Message, retrieval.Options{
		UseCases: req.IsCaseRAG,
		UseLaws:  req.IsLawRAG,
	})
	if err != nil {
		return Response{}, fmt.Errorf("retrieving context: %w", err)
	}

	prompt := req.Message
	if result.Context != "" {
		prompt = fmt.Sprintf(models.ChatPromptTemplate, result.Context, req.Message)
	}
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, models.SystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	llm, err := s.newLLM(ctx, req.LLMModelID)
	if err != nil {
		return Response{}, err
	}
	log.Debug().Str("thread", threadID).Str("model", req.LLMModelID).
		Int("context_chars", len(result.Context)).Msg("Generating answer")
	resp, err := llm.GenerateContent(ctx, messages)
	if err != nil {
		return Response{}, fmt.Errorf("generating answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("model returned no choices")
	}

	return Response{
		Response:  resp.Choices[0].Content,
		ThreadID:  threadID,
		Citations: result.Citations,
		Warnings:  result.Warnings,
	}, nil
}

// newLLM builds the generation client for the requested model id,
// falling back to the configured default.
func (s *Service) newLLM(ctx context.Context, modelID string) (llms.Model, error) {
	if modelID == "" {
		modelID = s.cfg.DefaultModel
	}
	switch {
	case strings.HasPrefix(modelID, "gemini"):
		model := s.cfg.GeminiModel
		if modelID != "gemini" {
			model = modelID
		}
		return googleai.New(ctx,
			googleai.WithAPIKey(os.Getenv(s.cfg.GoogleAPIKeyEnv)),
			googleai.WithDefaultModel(model),
		)
	case modelID == "openai" || strings.HasPrefix(modelID, "gpt"):
		model := s.cfg.OpenAIModel
		if modelID != "openai" {
			model = modelID
		}
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(os.Getenv(s.cfg.OpenAIKeyEnv), "Bearer ")),
			openai.WithModel(model),
		}
		if s.cfg.OpenAIBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(s.cfg.OpenAIBaseURL))
		}
		return openai.New(opts...)
	default:
		return nil, errs.Validation("llm_model_id", fmt.Sprintf("unsupported model %q", modelID))
	}
}
