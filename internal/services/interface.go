package services

import (
	"context"

	"flowstack/backend/internal/providers"
	"flowstack/backend/internal/vectorstore"
)

// CompletionClient is the text-completion provider contract.
type CompletionClient interface {
	Generate(ctx context.Context, req providers.GenerationRequest) (string, error)
}

// Embedder is the embedding provider contract. An unconfigured embedder
// reports unavailable; callers degrade softly.
type Embedder interface {
	Available() bool
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SearchClient is the web-search provider contract.
type SearchClient interface {
	Search(ctx context.Context, query string) ([]providers.SearchResult, error)
}

// VectorIndex hands out named collections of the vector index.
type VectorIndex interface {
	GetOrCreateCollection(ctx context.Context, name string) (VectorCollection, error)
}

// VectorCollection is one collection of the vector index.
type VectorCollection interface {
	Add(ctx context.Context, id string, embedding []float32, document string, metadata map[string]any) error
	Query(ctx context.Context, embedding []float32, topK int) (*vectorstore.QueryResult, error)
}

type vectorIndexAdapter struct {
	store *vectorstore.Store
}

func (a vectorIndexAdapter) GetOrCreateCollection(ctx context.Context, name string) (VectorCollection, error) {
	return a.store.GetOrCreateCollection(ctx, name)
}

// NewVectorIndex wraps the pgvector-backed store in the VectorIndex contract.
func NewVectorIndex(store *vectorstore.Store) VectorIndex {
	return vectorIndexAdapter{store: store}
}
