// Package report turns a finished negotiation transcript into a short
// markdown report for the humans behind the lead.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crosslead/negotiator/internal/negotiator/llm"
	"github.com/crosslead/negotiator/internal/negotiator/store"
)

// Gateway is the slice of the store the report builder needs.
type Gateway interface {
	GetChatRoom(ctx context.Context, id string) (*store.ChatRoom, error)
	GetLead(ctx context.Context, id int64) (*store.Lead, error)
	GetCompany(ctx context.Context, id int64) (*store.Company, error)
	ListChatMessages(ctx context.Context, roomID string) ([]*store.ChatMessage, error)
}

const reportSystemPrompt = `You write concise business reports from negotiation transcripts.
Produce markdown with exactly these sections:
## Overview
## Key Terms Discussed
## Outcome
## Recommended Next Steps
Base every statement on the transcript; do not invent terms that were not discussed.`

// Builder produces markdown reports from persisted negotiations.
type Builder struct {
	gateway  Gateway
	provider llm.Provider
	// Model overrides the provider's default model.
	Model  string
	logger *slog.Logger
}

// NewBuilder creates a report Builder. A nil logger uses the default.
func NewBuilder(gateway Gateway, provider llm.Provider, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{gateway: gateway, provider: provider, logger: logger}
}

// Build loads the room's transcript and asks the model for a report. An empty
// room is an error; there is nothing to report on.
func (b *Builder) Build(ctx context.Context, roomID string) (string, error) {
	room, err := b.gateway.GetChatRoom(ctx, roomID)
	if err != nil {
		return "", fmt.Errorf("report: room: %w", err)
	}
	if !room.LeadID.Valid {
		return "", fmt.Errorf("report: room %s is not a negotiation room", roomID)
	}
	lead, err := b.gateway.GetLead(ctx, room.LeadID.Int64)
	if err != nil {
		return "", fmt.Errorf("report: lead: %w", err)
	}
	seller, err := b.gateway.GetCompany(ctx, lead.SellerCompanyID)
	if err != nil {
		return "", fmt.Errorf("report: seller company: %w", err)
	}
	buyer, err := b.gateway.GetCompany(ctx, lead.BuyerCompanyID)
	if err != nil {
		return "", fmt.Errorf("report: buyer company: %w", err)
	}

	messages, err := b.gateway.ListChatMessages(ctx, roomID)
	if err != nil {
		return "", fmt.Errorf("report: transcript: %w", err)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("report: room %s has no messages", roomID)
	}

	names := map[int64]string{seller.ID: seller.Name, buyer.ID: buyer.Name}
	var transcript strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&transcript, "%s: %s\n", names[m.FromCompanyID], m.Contents)
	}

	resp, err := b.provider.Complete(ctx, llm.CompletionRequest{
		Model: b.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: reportSystemPrompt},
			{Role: llm.RoleUser, Content: transcript.String()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("report: generate: %w", err)
	}
	body := strings.TrimSpace(resp.Content)
	if body == "" {
		return "", fmt.Errorf("report: model returned an empty report")
	}

	b.logger.Info("report generated", "room_id", roomID, "messages", len(messages))

	header := fmt.Sprintf("# Negotiation Report: %s ↔ %s\n\n", seller.Name, buyer.Name)
	return header + body, nil
}
