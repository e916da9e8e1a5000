// Package config loads the negotiator settings document: a YAML file checked
// against an embedded JSON schema before it is decoded, so malformed settings
// fail loudly at startup with a path into the document instead of surfacing
// as odd behaviour mid-negotiation.
package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed settings.schema.json
var settingsSchema []byte

// Settings is the negotiator settings document.
type Settings struct {
	Negotiation Negotiation `yaml:"negotiation"`
	Models      Models      `yaml:"models"`
}

// Negotiation tunes the turn loop.
type Negotiation struct {
	MaxTurnPairs        int    `yaml:"maxTurnPairs"`
	RetrievalTopK       int    `yaml:"retrievalTopK"`
	FinalAssessmentTopK int    `yaml:"finalAssessmentTopK"`
	TerminationMarker   string `yaml:"terminationMarker"`
}

// Models names the models used for the three LLM concerns.
type Models struct {
	Chat                string `yaml:"chat"`
	Summary             string `yaml:"summary"`
	Embedding           string `yaml:"embedding"`
	EmbeddingDimensions int    `yaml:"embeddingDimensions"`
}

// Default returns the settings used when no settings file is given.
func Default() *Settings {
	return &Settings{
		Negotiation: Negotiation{
			MaxTurnPairs:        3,
			RetrievalTopK:       3,
			FinalAssessmentTopK: 5,
			TerminationMarker:   "[DEAL-CLOSED]",
		},
		Models: Models{
			Chat:                "gpt-4o",
			Summary:             "gpt-4o-mini",
			Embedding:           "text-embedding-3-small",
			EmbeddingDimensions: 1536,
		},
	}
}

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func schema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource("settings.schema.json", strings.NewReader(string(settingsSchema))); err != nil {
			compileErr = fmt.Errorf("config: add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("settings.schema.json")
	})
	return compiledSchema, compileErr
}

// Load reads and parses a settings file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a settings YAML document, validating it against the embedded
// schema first. Fields left out of the document take the defaults.
func Parse(data []byte) (*Settings, error) {
	sch, err := schema()
	if err != nil {
		return nil, err
	}

	// The schema validator expects JSON-decoded values, so the document goes
	// YAML → JSON → interface{} before validation.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("config: convert to json: %w", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(jsonBytes, &jsonDoc); err != nil {
		return nil, fmt.Errorf("config: decode json: %w", err)
	}
	if err := sch.Validate(jsonDoc); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	settings := Default()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks constraints the schema cannot express compactly.
func Validate(s *Settings) error {
	if s == nil {
		return fmt.Errorf("config: settings must not be nil")
	}
	if s.Negotiation.MaxTurnPairs < 1 {
		return fmt.Errorf("config: negotiation.maxTurnPairs must be >= 1")
	}
	if s.Negotiation.RetrievalTopK < 1 {
		return fmt.Errorf("config: negotiation.retrievalTopK must be >= 1")
	}
	if s.Negotiation.FinalAssessmentTopK < s.Negotiation.RetrievalTopK {
		return fmt.Errorf("config: negotiation.finalAssessmentTopK must be >= retrievalTopK")
	}
	if strings.TrimSpace(s.Negotiation.TerminationMarker) == "" {
		return fmt.Errorf("config: negotiation.terminationMarker must not be blank")
	}
	if s.Models.EmbeddingDimensions < 1 {
		return fmt.Errorf("config: models.embeddingDimensions must be >= 1")
	}
	return nil
}
