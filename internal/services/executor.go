package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"flowstack/backend/internal/providers"
	"flowstack/backend/pkg/models"
)

// Error strings surfaced as execution results. These are contract values the
// editor frontend matches on.
const (
	errNoLLMEngineNode     = "LLM Engine node not found in workflow."
	errInvalidProvider     = "Invalid LLM provider selected."
	errInvalidDefinition   = "Unsupported workflow definition format"
	defaultProviderForNode = providers.ProviderOpenAI
)

// ExecutionResult is the outcome of interpreting a workflow: exactly one of
// Response or Error is set.
type ExecutionResult struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Executor interprets a stored workflow graph: it locates the single
// execution-entry node, reads its configuration flags and delegates to the
// response orchestrator. Edges are persisted but never traversed.
type Executor struct {
	llm *LLMService
}

// NewExecutor creates an Executor.
func NewExecutor(llm *LLMService) *Executor {
	return &Executor{llm: llm}
}

// NormalizeDefinition canonicalizes a workflow definition into
// models.WorkflowDefinition. It accepts the typed struct, a pointer to it,
// raw JSON bytes, or the loose map shape read back from the JSONB column.
func NormalizeDefinition(definition any) (models.WorkflowDefinition, error) {
	switch d := definition.(type) {
	case models.WorkflowDefinition:
		return d, nil
	case *models.WorkflowDefinition:
		if d == nil {
			return models.WorkflowDefinition{}, errors.New("nil workflow definition")
		}
		return *d, nil
	case []byte:
		var def models.WorkflowDefinition
		if err := json.Unmarshal(d, &def); err != nil {
			return models.WorkflowDefinition{}, fmt.Errorf("invalid workflow definition json: %w", err)
		}
		return def, nil
	case nil:
		return models.WorkflowDefinition{}, errors.New("nil workflow definition")
	default:
		// Loose shapes (map[string]any and friends) round-trip through JSON.
		raw, err := json.Marshal(d)
		if err != nil {
			return models.WorkflowDefinition{}, fmt.Errorf("unsupported workflow definition type %T", definition)
		}
		var def models.WorkflowDefinition
		if err := json.Unmarshal(raw, &def); err != nil {
			return models.WorkflowDefinition{}, fmt.Errorf("unsupported workflow definition shape: %w", err)
		}
		return def, nil
	}
}

// Execute interprets the workflow definition against a query. Failures are
// returned as an error-shaped result, not a Go error: callers persist the
// error text as the bot's chat message.
func (e *Executor) Execute(ctx context.Context, definition any, query string) ExecutionResult {
	def, err := NormalizeDefinition(definition)
	if err != nil {
		return ExecutionResult{Error: errInvalidDefinition}
	}

	// First node of an execution-entry type, in stored order.
	var entry *models.Node
	for i := range def.Nodes {
		if def.Nodes[i].Type == models.NodeTypeLLMEngine || def.Nodes[i].Type == models.NodeTypeLLM {
			entry = &def.Nodes[i]
			break
		}
	}
	if entry == nil {
		return ExecutionResult{Error: errNoLLMEngineNode}
	}

	opts := GenerateOptions{
		Query:            query,
		Provider:         dataString(entry.Data, models.DataKeyLLMProvider, defaultProviderForNode),
		Model:            dataString(entry.Data, models.DataKeyModel, ""),
		UseKnowledgeBase: dataBool(entry.Data, models.DataKeyUseKnowledgeBase),
		UseSearch:        dataBool(entry.Data, models.DataKeyUseSearch),
	}

	response, err := e.llm.GenerateResponse(ctx, opts)
	if err != nil {
		if errors.Is(err, providers.ErrUnsupportedProvider) {
			return ExecutionResult{Error: errInvalidProvider}
		}
		return ExecutionResult{Error: err.Error()}
	}
	return ExecutionResult{Response: response}
}

// dataString reads an optional string key off the open node data map.
func dataString(data map[string]any, key, fallback string) string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// dataBool reads an optional boolean key, tolerating the JSON-ish string
// forms editors sometimes emit.
func dataBool(data map[string]any, key string) bool {
	v, ok := data[key]
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	default:
		return false
	}
}
