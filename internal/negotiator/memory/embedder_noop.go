package memory

import "context"

// NoopEmbedder is the default Embedder when no embedding backend is
// configured. It returns nil vectors, which disables similarity retrieval:
// RecordTurn drops every chunk and RetrieveContext reports context as
// unavailable.
type NoopEmbedder struct{}

// Embed returns nil with no error.
func (NoopEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, nil
}

// Compile-time interface satisfaction check.
var _ Embedder = NoopEmbedder{}
