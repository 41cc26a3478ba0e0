package chat

import (
	"context"
	"testing"

	"legal-rag/internal/config"
	"legal-rag/internal/errs"
)

func TestEmptyMessageRejected(t *testing.T) {
	s := New(nil, config.ChatConfig{})
	_, err := s.Chat(context.Background(), Request{Message: "  "})
	if !errs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUnsupportedModelRejected(t *testing.T) {
	s := New(nil, config.ChatConfig{DefaultModel: "gemini"})
	_, err := s.newLLM(context.Background(), "claude-sonnet")
	if !errs.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
