package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts.
	// Returns a slice of vectors, one per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// EmbeddingCache stores vectors keyed by model and text.
type EmbeddingCache interface {
	// LookupEmbeddings returns one entry per text; misses are nil.
	LookupEmbeddings(model string, texts []string) ([][]float32, error)

	StoreEmbeddings(model string, texts []string, vectors [][]float32) error
}
