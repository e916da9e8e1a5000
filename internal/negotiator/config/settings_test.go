package config

import (
	"strings"
	"testing"
)

func TestParse_OverridesDefaults(t *testing.T) {
	doc := []byte(`
negotiation:
  maxTurnPairs: 5
  terminationMarker: "[CLOSED]"
models:
  chat: gpt-4o-mini
`)
	s, err := Parse(doc)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if s.Negotiation.MaxTurnPairs != 5 {
		t.Errorf("MaxTurnPairs = %d, want 5", s.Negotiation.MaxTurnPairs)
	}
	if s.Negotiation.TerminationMarker != "[CLOSED]" {
		t.Errorf("TerminationMarker = %q, want [CLOSED]", s.Negotiation.TerminationMarker)
	}
	// Untouched fields keep their defaults.
	if s.Negotiation.RetrievalTopK != 3 {
		t.Errorf("RetrievalTopK = %d, want default 3", s.Negotiation.RetrievalTopK)
	}
	if s.Models.Chat != "gpt-4o-mini" {
		t.Errorf("Models.Chat = %q, want gpt-4o-mini", s.Models.Chat)
	}
	if s.Models.EmbeddingDimensions != 1536 {
		t.Errorf("EmbeddingDimensions = %d, want default 1536", s.Models.EmbeddingDimensions)
	}
}

func TestParse_EmptyDocumentIsAllDefaults(t *testing.T) {
	s, err := Parse([]byte(""))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if *s != *Default() {
		t.Errorf("Parse(empty) = %+v, want defaults", s)
	}
}

func TestParse_SchemaRejections(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown top-level key", "negotiaton:\n  maxTurnPairs: 3\n"},
		{"wrong type", "negotiation:\n  maxTurnPairs: three\n"},
		{"below minimum", "negotiation:\n  maxTurnPairs: 0\n"},
		{"blank marker", "negotiation:\n  terminationMarker: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Errorf("Parse(%q) error = nil, want schema rejection", tt.doc)
			}
		})
	}
}

func TestValidate_CrossFieldConstraints(t *testing.T) {
	s := Default()
	s.Negotiation.RetrievalTopK = 6 // now exceeds FinalAssessmentTopK of 5

	err := Validate(s)
	if err == nil || !strings.Contains(err.Error(), "finalAssessmentTopK") {
		t.Errorf("Validate() error = %v, want finalAssessmentTopK constraint", err)
	}
}
