// Package providers contains thin clients for the external services the
// backend depends on: text completion, embeddings and web search. Each client
// makes a single call per request and normalizes failures into ProviderError
// so upstream faults surface as data, never as panics or raw SDK errors.
package providers

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned when a provider identifier outside the
// supported set is requested. No remote call is attempted.
var ErrUnsupportedProvider = errors.New("unsupported llm provider")

// ErrEmbeddingsUnavailable signals that no embedding provider is configured.
// Callers must treat this as a soft failure, not a hard error.
var ErrEmbeddingsUnavailable = errors.New("embedding provider unavailable")

// ProviderError is a normalized failure from an external provider. Status and
// Body carry the upstream HTTP status and response body (Status is 0 when the
// request never produced a response).
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s provider error: %s", e.Provider, e.Body)
	}
	return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.Status, e.Body)
}
