// Negotiator runs automated buyer/seller negotiations over HTTP.
//
// All configuration is loaded from environment variables:
//
//	NEGOTIATOR_API_KEY        - API key for the LLM provider (required)
//	NEGOTIATOR_API_BASE_URL   - override LLM API base URL (e.g. for Ollama)
//	NEGOTIATOR_LISTEN_ADDR    - HTTP listen address (default ":8080")
//	NEGOTIATOR_DB_PATH        - path to the SQLite database (default "negotiator.db")
//	NEGOTIATOR_SETTINGS_PATH  - optional YAML settings file
//	NEGOTIATOR_LOG_LEVEL      - "debug", "info", "warn", "error" (default "info")
//	NEGOTIATOR_LOG_FORMAT     - "text" or "json" (default "text")
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crosslead/negotiator/internal/negotiator/app"
)

func main() {
	opts, err := app.LoadOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "negotiator: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "negotiator: %v\n", err)
		os.Exit(1)
	}
}
