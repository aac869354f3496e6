package providers

import (
	"context"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// embeddingModel is the fixed model used for all document and query
// embeddings. The vector_entries table is dimensioned to match (1536).
const embeddingModel = openai.AdaEmbeddingV2

// OpenAIEmbedder produces embeddings via the OpenAI embeddings API. When no
// API key is configured, Embed returns ErrEmbeddingsUnavailable and callers
// degrade softly (skip retrieval, skip indexing).
type OpenAIEmbedder struct {
	apiKey string

	// baseURL overrides the endpoint, used by tests.
	baseURL string

	httpClient *http.Client
}

// NewOpenAIEmbedder creates an embedder. An empty key yields an unavailable
// embedder rather than an error.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Available reports whether the embedder is configured.
func (e *OpenAIEmbedder) Available() bool {
	return e.apiKey != ""
}

// Embed returns the embedding vector for text, or ErrEmbeddingsUnavailable
// when unconfigured.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !e.Available() {
		return nil, ErrEmbeddingsUnavailable
	}

	config := openai.DefaultConfig(e.apiKey)
	if e.baseURL != "" {
		config.BaseURL = e.baseURL
	}
	config.HTTPClient = e.httpClient
	client := openai.NewClientWithConfig(config)

	resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: embeddingModel,
	})
	if err != nil {
		return nil, normalizeOpenAIError(ProviderOpenAI, err)
	}
	if len(resp.Data) == 0 {
		return nil, &ProviderError{
			Provider: ProviderOpenAI,
			Status:   http.StatusOK,
			Body:     "embedding response contained no data",
		}
	}
	return resp.Data[0].Embedding, nil
}
