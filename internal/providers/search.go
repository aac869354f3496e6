package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const serpAPIBaseURL = "https://serpapi.com/search.json"

// SearchResult is one organic web search result, in the provider's own
// relevance order.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SerpAPIClient performs web searches through SerpAPI.
type SerpAPIClient struct {
	apiKey string

	// baseURL overrides the endpoint, used by tests.
	baseURL string

	httpClient *http.Client
}

// NewSerpAPIClient creates a search client.
func NewSerpAPIClient(apiKey string) *SerpAPIClient {
	return &SerpAPIClient{
		apiKey:     apiKey,
		baseURL:    serpAPIBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Search returns the organic results for query. Non-success upstream
// responses come back as a *ProviderError carrying status and body.
func (c *SerpAPIClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if c.apiKey == "" {
		return nil, &ProviderError{Provider: "serpapi", Body: "API key not configured"}
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "serpapi", Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "serpapi", Status: resp.StatusCode, Body: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: "serpapi", Status: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		OrganicResults []SearchResult `json:"organic_results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ProviderError{Provider: "serpapi", Status: resp.StatusCode, Body: string(body)}
	}
	return payload.OrganicResults, nil
}
