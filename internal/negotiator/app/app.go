// Package app wires the negotiator together from environment configuration
// and runs the HTTP server until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/crosslead/negotiator/common/environment"
	"github.com/crosslead/negotiator/internal/negotiator/chat"
	"github.com/crosslead/negotiator/internal/negotiator/config"
	"github.com/crosslead/negotiator/internal/negotiator/httpapi"
	"github.com/crosslead/negotiator/internal/negotiator/llm"
	"github.com/crosslead/negotiator/internal/negotiator/memory"
	"github.com/crosslead/negotiator/internal/negotiator/observability"
	"github.com/crosslead/negotiator/internal/negotiator/report"
	"github.com/crosslead/negotiator/internal/negotiator/session"
	"github.com/crosslead/negotiator/internal/negotiator/store"
)

// Options come from the environment; see LoadOptions for the variable names.
type Options struct {
	ListenAddr   string
	DatabasePath string
	SettingsPath string
	APIKey       string
	APIBaseURL   string
	LogLevel     string
	LogFormat    string
}

// LoadOptions reads the process environment. NEGOTIATOR_API_KEY is the only
// required variable.
func LoadOptions() (Options, error) {
	apiKey, err := environment.RequiredString("NEGOTIATOR_API_KEY")
	if err != nil {
		return Options{}, err
	}
	return Options{
		ListenAddr:   environment.StringOr("NEGOTIATOR_LISTEN_ADDR", ":8080"),
		DatabasePath: environment.StringOr("NEGOTIATOR_DB_PATH", "negotiator.db"),
		SettingsPath: environment.StringOr("NEGOTIATOR_SETTINGS_PATH", ""),
		APIKey:       apiKey,
		APIBaseURL:   environment.StringOr("NEGOTIATOR_API_BASE_URL", ""),
		LogLevel:     environment.StringOr("NEGOTIATOR_LOG_LEVEL", "info"),
		LogFormat:    environment.StringOr("NEGOTIATOR_LOG_FORMAT", "text"),
	}, nil
}

// Run builds the whole stack and serves until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	observability.Setup(opts.LogLevel, opts.LogFormat)
	logger := slog.Default()

	settings := config.Default()
	if opts.SettingsPath != "" {
		var err error
		settings, err = config.Load(opts.SettingsPath)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		logger.Info("settings loaded", "path", opts.SettingsPath)
	}

	db, err := store.New(opts.DatabasePath)
	if err != nil {
		return fmt.Errorf("app: open store: %w", err)
	}
	defer db.Close()

	provider := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  opts.APIKey,
		BaseURL: opts.APIBaseURL,
		Model:   settings.Models.Chat,
	})
	embedder := memory.NewOpenAIEmbedder(memory.OpenAIEmbedderConfig{
		APIKey:  opts.APIKey,
		BaseURL: opts.APIBaseURL,
		Model:   settings.Models.Embedding,
	})
	summariser := memory.NewLLMSummariser(provider, settings.Models.Summary, logger)

	orchestrator := session.New(db, provider, embedder, summariser,
		settings.Models.EmbeddingDimensions,
		session.Config{
			MaxTurnPairs:        settings.Negotiation.MaxTurnPairs,
			RetrievalTopK:       settings.Negotiation.RetrievalTopK,
			FinalAssessmentTopK: settings.Negotiation.FinalAssessmentTopK,
			TerminationMarker:   settings.Negotiation.TerminationMarker,
		},
		logger)
	reports := report.NewBuilder(db, provider, logger)
	chats := chat.NewService(db, provider, logger)

	server := &http.Server{
		Addr:              opts.ListenAddr,
		Handler:           httpapi.New(orchestrator, reports, chats, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", opts.ListenAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	}
}
