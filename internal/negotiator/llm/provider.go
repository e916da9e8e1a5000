// Package llm defines the LLM provider interface used by the negotiation
// agents and the summarisation pipeline.
//
// Each agent turn is a single completion call: role instructions as the
// system message, the constructed turn input as the user message. There is
// no tool calling and no multi-round exchange within one turn.
package llm

import "context"

// Role is the role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is the input to a single LLM inference call.
type CompletionRequest struct {
	// Model overrides the provider's default model when non-empty.
	Model     string
	Messages  []Message
	MaxTokens int
}

// CompletionResponse is the output from the LLM.
type CompletionResponse struct {
	// Content is the assistant message text.
	Content string
	// FinishReason explains why the model stopped ("stop", "length", ...).
	FinishReason string
	// Usage holds token count information.
	Usage TokenUsage
}

// TokenUsage reports token consumption for billing/rate-limit tracking.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Provider is the interface that all LLM backends must implement.
type Provider interface {
	// Complete sends messages to the LLM and returns the assistant response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
