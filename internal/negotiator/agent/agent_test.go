package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/crosslead/negotiator/internal/negotiator/llm"
)

type stubProvider struct {
	content string
	err     error
	gotReq  llm.CompletionRequest
}

func (s *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content, FinishReason: "stop"}, nil
}

func TestNewSeller_InstructionsIncludeBothProfiles(t *testing.T) {
	a := NewSeller("Acme Valves", "makes industrial valves", "Buyer Co", "runs water plants", "[DEAL-CLOSED]")

	for _, want := range []string{"Acme Valves", "makes industrial valves", "Buyer Co", "runs water plants", "[DEAL-CLOSED]"} {
		if !strings.Contains(a.Instructions, want) {
			t.Errorf("seller instructions missing %q", want)
		}
	}
	if a.Name != "Acme Valves" {
		t.Errorf("Name = %q, want Acme Valves", a.Name)
	}
}

func TestNewBuyer_InstructionsOmitSellerProfile(t *testing.T) {
	a := NewBuyer("Buyer Co", "runs water plants", "[DEAL-CLOSED]")

	if !strings.Contains(a.Instructions, "runs water plants") {
		t.Error("buyer instructions missing own profile")
	}
	if !strings.Contains(a.Instructions, "[DEAL-CLOSED]") {
		t.Error("buyer instructions missing termination marker")
	}
	if !strings.Contains(a.Instructions, "conservative") {
		t.Error("buyer instructions missing conservative stance")
	}
}

func TestRun_BuildsSystemAndUserMessages(t *testing.T) {
	prov := &stubProvider{content: "  a reply  "}
	a := NewBuyer("Buyer Co", NoProfilePlaceholder, "[DEAL-CLOSED]")

	got, err := a.Run(context.Background(), prov, "turn input")
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got != "a reply" {
		t.Errorf("Run() = %q, want trimmed completion", got)
	}

	if len(prov.gotReq.Messages) != 2 {
		t.Fatalf("sent %d messages, want 2", len(prov.gotReq.Messages))
	}
	if prov.gotReq.Messages[0].Role != llm.RoleSystem || prov.gotReq.Messages[0].Content != a.Instructions {
		t.Error("first message should be the persona instructions")
	}
	if prov.gotReq.Messages[1].Role != llm.RoleUser || prov.gotReq.Messages[1].Content != "turn input" {
		t.Error("second message should be the turn input")
	}
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name string
		prov *stubProvider
	}{
		{"provider error", &stubProvider{err: errors.New("rate limited")}},
		{"empty completion", &stubProvider{content: "   "}},
	}

	a := NewSeller("S", "", "B", "", "[DEAL-CLOSED]")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := a.Run(context.Background(), tt.prov, "input"); err == nil {
				t.Error("Run() error = nil, want error so the caller can substitute the fallback")
			}
		})
	}
}
