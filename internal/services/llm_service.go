package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"flowstack/backend/internal/providers"
	"flowstack/backend/internal/vectorstore"
)

const (
	knowledgeBaseHeader = "\n\n--- Knowledge Base Context ---\n"
	webSearchHeader     = "\n\n--- Web Search Results ---\n"

	contextPromptTemplate = "Based on the following context, please answer the query.\n\nContext:%s\n\nQuery: %s"

	systemPrompt = "You are a helpful assistant. Answer the query using the provided context when it is available. " +
		"Keep answers concise and grounded in the context. If you are unsure of the answer, say \"I don't know\"."

	// Fixed generation parameters: low temperature and a token cap bias the
	// output toward determinism and bound cost.
	generationTemperature = 0.2
	generationMaxTokens   = 512

	knowledgeBaseTopK = 2
	searchResultLimit = 3
)

// GenerateOptions describes one orchestrated generation.
type GenerateOptions struct {
	Query            string
	Provider         string
	Model            string
	UseKnowledgeBase bool
	UseSearch        bool
}

// LLMService assembles a prompt from optional knowledge-base and web-search
// context and makes a single completion call.
type LLMService struct {
	completion CompletionClient
	embedder   Embedder
	search     SearchClient
	vectors    VectorIndex
	logger     zerolog.Logger
}

// NewLLMService creates an LLMService.
func NewLLMService(completion CompletionClient, embedder Embedder, search SearchClient, vectors VectorIndex, logger zerolog.Logger) *LLMService {
	return &LLMService{
		completion: completion,
		embedder:   embedder,
		search:     search,
		vectors:    vectors,
		logger:     logger,
	}
}

// GenerateResponse runs the two optional augmentations, assembles the prompt
// and calls the completion provider once.
func (s *LLMService) GenerateResponse(ctx context.Context, opts GenerateOptions) (string, error) {
	var contextText strings.Builder

	if opts.UseKnowledgeBase {
		kbContext, err := s.knowledgeBaseContext(ctx, opts.Query)
		if err != nil {
			return "", err
		}
		contextText.WriteString(kbContext)
	}

	if opts.UseSearch {
		searchContext, err := s.searchContext(ctx, opts.Query)
		if err != nil {
			return "", err
		}
		contextText.WriteString(searchContext)
	}

	prompt := opts.Query
	if contextText.Len() > 0 {
		prompt = fmt.Sprintf(contextPromptTemplate, contextText.String(), opts.Query)
	}

	return s.completion.Generate(ctx, providers.GenerationRequest{
		Provider:     opts.Provider,
		Model:        opts.Model,
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Temperature:  generationTemperature,
		MaxTokens:    generationMaxTokens,
	})
}

// knowledgeBaseContext embeds the query and fetches the nearest documents.
// Zero matches or an unavailable embedder contribute no context at all; the
// header is only emitted when there is at least one document.
func (s *LLMService) knowledgeBaseContext(ctx context.Context, query string) (string, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if err == providers.ErrEmbeddingsUnavailable {
			s.logger.Warn().Msg("embedding provider unavailable, skipping knowledge base retrieval")
			return "", nil
		}
		return "", err
	}

	collection, err := s.vectors.GetOrCreateCollection(ctx, vectorstore.DefaultCollection)
	if err != nil {
		return "", err
	}
	results, err := collection.Query(ctx, embedding, knowledgeBaseTopK)
	if err != nil {
		return "", err
	}
	if len(results.Documents) == 0 {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(knowledgeBaseHeader)
	for _, doc := range results.Documents {
		sb.WriteString(doc)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// searchContext fetches web results and formats the top entries.
func (s *LLMService) searchContext(ctx context.Context, query string) (string, error) {
	results, err := s.search.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", nil
	}
	if len(results) > searchResultLimit {
		results = results[:searchResultLimit]
	}

	var sb strings.Builder
	sb.WriteString(webSearchHeader)
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("Title: %s\nSnippet: %s\n\n", r.Title, r.Snippet))
	}
	return sb.String(), nil
}

// QueryKnowledgeBase embeds the query and returns the raw top-k result from
// the vector index, unnormalized.
func (s *LLMService) QueryKnowledgeBase(ctx context.Context, query string, topK int) (*vectorstore.QueryResult, error) {
	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	collection, err := s.vectors.GetOrCreateCollection(ctx, vectorstore.DefaultCollection)
	if err != nil {
		return nil, err
	}
	return collection.Query(ctx, embedding, topK)
}
