package embedding

import (
	"context"
	"errors"
	"strings"
)

// Provider generates vector embeddings for text
type Provider interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension
	Dimensions() int

	// ModelName returns the model identifier
	ModelName() string
}

// ErrEmptyEmbedding is returned when the provider answers without a usable
// vector. Batch callers record it per item; a live search treats it as fatal.
var ErrEmptyEmbedding = errors.New("embedding provider returned an empty vector")

// NormalizeText canonicalizes text for cache keying so trivially different
// requests ("Foo " vs "foo") share one embedding.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
