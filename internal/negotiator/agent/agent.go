// Package agent builds the two negotiation personas. An Agent is a fixed
// system instruction plus a name; per-turn context is supplied by the caller
// on every Run call, so agents themselves hold no conversational state.
package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/crosslead/negotiator/internal/negotiator/llm"
)

// FallbackMessage is substituted for an agent's output when the underlying
// model call fails. The negotiation continues with this as the turn's
// contents rather than aborting.
const FallbackMessage = "Unable to respond due to an internal error."

// NoProfilePlaceholder stands in for a company profile summary when the
// company has no uploaded profile document.
const NoProfilePlaceholder = "no company summary available"

// Agent is one negotiation persona.
type Agent struct {
	// Name is the display name for this side of the table, usually the
	// company name.
	Name string
	// Instructions is the persona's system prompt, fixed for the session.
	Instructions string
}

const sellerInstructionsTemplate = `You are a sales representative for the company "%s".
Your company profile:
%s

You are negotiating with a prospective buyer, "%s". Their profile:
%s

Rules:
- Promote your company's products and services persuasively but honestly.
- Never invent prices, quantities, certifications or delivery terms that are
  not supported by your company profile. If you lack a concrete number, say so.
- Respond in the same language the buyer writes in.
- Keep each reply focused and under 150 words.
- When both sides have clearly agreed on a deal, end your reply with the exact
  text %s on its own line.`

const buyerInstructionsTemplate = `You are a procurement manager for the company "%s".
Your company profile:
%s

You are evaluating an offer from a seller. Rules:
- Be conservative: probe for weaknesses, ask for specifics, and do not agree
  to terms that are vague or unsupported.
- Never invent budget figures or requirements not supported by your company
  profile.
- Respond in the same language the seller writes in.
- Keep each reply focused and under 150 words.
- Only if the offer clearly satisfies your company's needs and every material
  term is settled, end your reply with the exact text %s on its own line.`

// NewSeller builds the seller persona. Both profiles are injected so the
// seller can tailor its pitch to the buyer it is addressing.
func NewSeller(sellerName, sellerSummary, buyerName, buyerSummary, terminationMarker string) *Agent {
	return &Agent{
		Name: sellerName,
		Instructions: fmt.Sprintf(sellerInstructionsTemplate,
			sellerName, sellerSummary, buyerName, buyerSummary, terminationMarker),
	}
}

// NewBuyer builds the buyer persona. The buyer only sees its own profile;
// everything it learns about the seller comes through the conversation.
func NewBuyer(buyerName, buyerSummary, terminationMarker string) *Agent {
	return &Agent{
		Name: buyerName,
		Instructions: fmt.Sprintf(buyerInstructionsTemplate,
			buyerName, buyerSummary, terminationMarker),
	}
}

// Run executes one turn: the persona instructions as the system message and
// input as the user message. An empty completion is reported as an error so
// the caller can substitute FallbackMessage.
func (a *Agent) Run(ctx context.Context, provider llm.Provider, input string) (string, error) {
	resp, err := provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: a.Instructions},
			{Role: llm.RoleUser, Content: input},
		},
	})
	if err != nil {
		return "", fmt.Errorf("agent %s: %w", a.Name, err)
	}

	output := strings.TrimSpace(resp.Content)
	if output == "" {
		return "", fmt.Errorf("agent %s: model returned an empty completion", a.Name)
	}
	return output, nil
}
