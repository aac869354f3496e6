package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Supported completion providers.
const (
	ProviderOpenAI  = "openai"
	ProviderMistral = "mistral"
	ProviderGemini  = "gemini"
)

const mistralBaseURL = "https://api.mistral.ai/v1"

// requestTimeout is the fixed timeout applied to every completion request.
// There is no retry: each call is attempted exactly once.
const requestTimeout = 60 * time.Second

var defaultModels = map[string]string{
	ProviderOpenAI:  "gpt-3.5-turbo",
	ProviderMistral: "mistral-small",
	ProviderGemini:  "gemini-pro",
}

// GenerationRequest describes one completion call.
type GenerationRequest struct {
	Provider     string
	Model        string
	Prompt       string
	SystemPrompt string
	Temperature  float32
	MaxTokens    int
}

// CompletionClient calls the configured text-completion providers. OpenAI and
// Mistral share the OpenAI-compatible chat completions API; Gemini goes
// through the genai SDK.
type CompletionClient struct {
	openAIKey  string
	mistralKey string
	geminiKey  string

	// openAIBaseURL overrides the OpenAI endpoint, used by tests.
	openAIBaseURL string

	httpClient *http.Client
}

// NewCompletionClient creates a client for the given provider credentials.
// Keys may be empty; calls against an unconfigured provider fail with a
// ProviderError instead of attempting a request.
func NewCompletionClient(openAIKey, mistralKey, geminiKey string) *CompletionClient {
	return &CompletionClient{
		openAIKey:  openAIKey,
		mistralKey: mistralKey,
		geminiKey:  geminiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Generate issues one completion call and returns the generated text. Any
// non-success status, unparseable response, or response missing
// choices[0].message.content comes back as a *ProviderError. A provider
// identifier outside the supported set yields ErrUnsupportedProvider without
// a call.
func (c *CompletionClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = defaultModels[req.Provider]
	}

	switch req.Provider {
	case ProviderOpenAI:
		return c.generateOpenAICompatible(ctx, req, ProviderOpenAI, model, c.openAIKey, c.openAIBaseURL)
	case ProviderMistral:
		return c.generateOpenAICompatible(ctx, req, ProviderMistral, model, c.mistralKey, mistralBaseURL)
	case ProviderGemini:
		return c.generateGemini(ctx, req, model)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, req.Provider)
	}
}

func (c *CompletionClient) generateOpenAICompatible(ctx context.Context, req GenerationRequest, provider, model, apiKey, baseURL string) (string, error) {
	if apiKey == "" {
		return "", &ProviderError{Provider: provider, Body: "API key not configured"}
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = c.httpClient
	client := openai.NewClientWithConfig(config)

	messages := []openai.ChatCompletionMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", normalizeOpenAIError(provider, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &ProviderError{
			Provider: provider,
			Status:   http.StatusOK,
			Body:     "completion response missing choices[0].message.content",
		}
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *CompletionClient) generateGemini(ctx context.Context, req GenerationRequest, model string) (string, error) {
	if c.geminiKey == "" {
		return "", &ProviderError{Provider: ProviderGemini, Body: "API key not configured"}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.geminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", &ProviderError{Provider: ProviderGemini, Body: err.Error()}
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(req.Temperature),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", normalizeGeminiError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", &ProviderError{
			Provider: ProviderGemini,
			Status:   http.StatusOK,
			Body:     "completion response contained no text",
		}
	}
	return text, nil
}

func normalizeOpenAIError(provider string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: provider, Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &ProviderError{Provider: provider, Status: reqErr.HTTPStatusCode, Body: body}
	}
	return &ProviderError{Provider: provider, Body: err.Error()}
}

func normalizeGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: ProviderGemini, Status: apiErr.Code, Body: apiErr.Message}
	}
	return &ProviderError{Provider: ProviderGemini, Body: err.Error()}
}
