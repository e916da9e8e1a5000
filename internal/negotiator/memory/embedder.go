// Package memory implements the retrieval-augmented conversation memory for
// one negotiation session. Each recorded turn is summarised (best effort),
// embedded, and indexed in an in-memory vector index; retrieval returns the
// most similar stored chunks as a labelled context block for the next agent
// call.
package memory

import "context"

// Embedder produces vector embeddings for text. Implementations range from
// a no-op stub (disables retrieval) to OpenAI's text-embedding-3-small for
// production use. Vectors are assumed unit-norm so that inner product equals
// cosine similarity.
type Embedder interface {
	// Embed produces a vector embedding for the given text.
	// Returns nil with no error when embedding is not available (noop).
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Summariser compresses a turn chunk before it is stored. Implementations
// must never block storage: on failure the original text is returned
// unchanged.
type Summariser interface {
	// Summarise returns a compressed form of text, or text itself when
	// compression is unavailable or fails.
	Summarise(ctx context.Context, text string) string
}
