package memory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/crosslead/negotiator/internal/negotiator/llm"
)

// summariserSystemPrompt instructs the LLM to compress a two-message exchange
// into a short context-preserving note for a reader who was not present.
const summariserSystemPrompt = "Compress the following negotiation exchange into 1-2 sentences. " +
	"Preserve every concrete term mentioned (products, quantities, prices, delivery, support), " +
	"so a reader who did not see the exchange still understands where the negotiation stands."

// IdentitySummariser is the default Summariser: it stores chunks verbatim.
type IdentitySummariser struct{}

// Summarise returns text unchanged.
func (IdentitySummariser) Summarise(ctx context.Context, text string) string {
	return text
}

// LLMSummariser implements Summariser over an LLM provider. Summarisation is
// strictly best-effort: any provider failure, or an empty completion, falls
// back to the original text so that storage is never blocked.
type LLMSummariser struct {
	Provider llm.Provider
	// Model overrides the provider's default model (a cheap/fast model is
	// usually appropriate here).
	Model  string
	Logger *slog.Logger
}

// NewLLMSummariser creates a Summariser backed by the given provider.
// If logger is nil, the default slog logger is used.
func NewLLMSummariser(provider llm.Provider, model string, logger *slog.Logger) *LLMSummariser {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMSummariser{Provider: provider, Model: model, Logger: logger}
}

// Summarise asks the LLM to compress text. On any failure the original text
// is returned unchanged.
func (s *LLMSummariser) Summarise(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	resp, err := s.Provider.Complete(ctx, llm.CompletionRequest{
		Model: s.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: summariserSystemPrompt},
			{Role: llm.RoleUser, Content: text},
		},
		MaxTokens: 256,
	})
	if err != nil {
		s.Logger.Warn("summariser: falling back to raw chunk", "err", err, "chunk_len", len(text))
		return text
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		s.Logger.Warn("summariser: empty completion, falling back to raw chunk", "chunk_len", len(text))
		return text
	}
	return summary
}

// Compile-time interface satisfaction checks.
var (
	_ Summariser = IdentitySummariser{}
	_ Summariser = (*LLMSummariser)(nil)
)
