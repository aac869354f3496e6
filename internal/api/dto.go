package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"flowstack/backend/pkg/models"
)

// CreateWorkflowRequest is the payload for creating a workflow.
type CreateWorkflowRequest struct {
	Name       string                    `json:"name"`
	Definition models.WorkflowDefinition `json:"definition"`
}

func (r CreateWorkflowRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
	)
}

// QueryRequest is the payload for executing a workflow.
type QueryRequest struct {
	Query string `json:"query"`
}

func (r QueryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Query, validation.Required),
	)
}

// KnowledgeQueryRequest is the payload for querying the knowledge base.
type KnowledgeQueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (r KnowledgeQueryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Query, validation.Required),
		validation.Field(&r.TopK, validation.Min(0)),
	)
}

// LLMTestRequest optionally selects the provider exercised by the test
// endpoint.
type LLMTestRequest struct {
	Provider string `json:"provider"`
}
