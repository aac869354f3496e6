package repository

import (
	"context"
	"errors"

	"flowstack/backend/pkg/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// WorkflowStore provides typed CRUD access to workflow definitions.
type WorkflowStore interface {
	// CreateWorkflow persists a new workflow and fills in its id and timestamp.
	CreateWorkflow(ctx context.Context, name string, def models.WorkflowDefinition) (*models.Workflow, error)
	// GetWorkflow retrieves a workflow by id. Returns ErrNotFound if absent.
	GetWorkflow(ctx context.Context, id int) (*models.Workflow, error)
	// ListWorkflows returns workflows ordered by id, paged by offset/limit.
	ListWorkflows(ctx context.Context, offset, limit int) ([]models.Workflow, error)
	// UpdateWorkflow applies only the fields present in upd. Returns
	// ErrNotFound if the workflow is absent.
	UpdateWorkflow(ctx context.Context, id int, upd models.WorkflowUpdate) (*models.Workflow, error)
	// DeleteWorkflow removes a workflow and returns the deleted record.
	// Deleting a non-existent id returns (nil, nil).
	DeleteWorkflow(ctx context.Context, id int) (*models.Workflow, error)
}

// DocumentStore provides access to ingested documents. Documents are
// immutable: there is no update or delete.
type DocumentStore interface {
	CreateDocument(ctx context.Context, filename, content string) (*models.Document, error)
	// GetDocument retrieves a document by id. Returns ErrNotFound if absent.
	GetDocument(ctx context.Context, id int) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]models.Document, error)
}

// ChatLogStore provides append-only access to chat history.
type ChatLogStore interface {
	CreateChatLog(ctx context.Context, workflowID int, sender, message string) (*models.ChatLog, error)
	// ListChatLogsByWorkflow returns entries in creation order.
	ListChatLogsByWorkflow(ctx context.Context, workflowID, offset, limit int) ([]models.ChatLog, error)
}
