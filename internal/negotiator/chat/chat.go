// Package chat answers one-off messages on behalf of a company's sales
// assistant, outside any negotiation. Each call is a single completion
// grounded in the company's latest profile summary; the reply is persisted
// to a chat room, which is created on the fly when none is given.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/crosslead/negotiator/internal/negotiator/agent"
	"github.com/crosslead/negotiator/internal/negotiator/llm"
	"github.com/crosslead/negotiator/internal/negotiator/store"
)

// Gateway is the slice of the store the chat service needs.
type Gateway interface {
	GetCompany(ctx context.Context, id int64) (*store.Company, error)
	GetLatestProfileSummary(ctx context.Context, companyID int64) (string, bool, error)
	GetChatRoom(ctx context.Context, id string) (*store.ChatRoom, error)
	CreateStandaloneChatRoom(ctx context.Context, id string) (*store.ChatRoom, error)
	CreateAgentChatMessage(ctx context.Context, roomID string, toCompanyID int64, contents string) (*store.ChatMessage, error)
}

const assistantInstructionsTemplate = `You are a B2B sales assistant answering on behalf of a company.
The company's profile:
%s

Answer the incoming message helpfully and concretely, grounded in the profile.
Do not invent facts, figures, or commitments the profile does not support.
Respond in the same language the message is written in.`

// Service answers single messages as a company's assistant.
type Service struct {
	gateway  Gateway
	provider llm.Provider
	logger   *slog.Logger
}

// NewService creates a chat Service. A nil logger uses the default.
func NewService(gateway Gateway, provider llm.Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, provider: provider, logger: logger}
}

// SendMessage answers contents as the given company's assistant and persists
// the reply. When roomID is empty a new standalone room is created; otherwise
// the room must exist. The persisted reply is returned.
func (s *Service) SendMessage(ctx context.Context, companyID int64, contents, roomID string) (*store.ChatMessage, error) {
	if strings.TrimSpace(contents) == "" {
		return nil, fmt.Errorf("chat: contents must not be empty")
	}

	company, err := s.gateway.GetCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("chat: company: %w", err)
	}

	summary, ok, err := s.gateway.GetLatestProfileSummary(ctx, company.ID)
	if err != nil {
		return nil, fmt.Errorf("chat: profile summary: %w", err)
	}
	if !ok {
		summary = agent.NoProfilePlaceholder
	}

	if roomID == "" {
		room, err := s.gateway.CreateStandaloneChatRoom(ctx, uuid.NewString())
		if err != nil {
			return nil, fmt.Errorf("chat: create room: %w", err)
		}
		roomID = room.ID
	} else {
		if _, err := s.gateway.GetChatRoom(ctx, roomID); err != nil {
			return nil, fmt.Errorf("chat: room: %w", err)
		}
	}

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf(assistantInstructionsTemplate, summary)},
			{Role: llm.RoleUser, Content: contents},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat: generate reply: %w", err)
	}
	reply := strings.TrimSpace(resp.Content)
	if reply == "" {
		return nil, fmt.Errorf("chat: model returned an empty reply")
	}

	msg, err := s.gateway.CreateAgentChatMessage(ctx, roomID, company.ID, reply)
	if err != nil {
		return nil, fmt.Errorf("chat: persist reply: %w", err)
	}

	s.logger.Info("chat reply sent", "company_id", company.ID, "room_id", roomID, "message_id", msg.ID)
	return msg, nil
}
