// Package embeddings produces the text vectors behind the inspiration
// image semantic index.
package embeddings

import "context"

// Embedder generates embedding vectors for text.
type Embedder interface {
	// Embed embeds one or more texts, one vector per input.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector width.
	Dimensions() int

	// Name returns the embedding model identifier.
	Name() string
}
