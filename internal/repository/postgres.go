package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"flowstack/backend/pkg/models"
)

// PostgresStore is a PostgreSQL implementation of the workflow, document and
// chat log stores. Every method runs as a single implicit transaction; no
// multi-record atomicity is provided or required.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWorkflow persists a new workflow and returns the stored record.
func (s *PostgresStore) CreateWorkflow(ctx context.Context, name string, def models.WorkflowDefinition) (*models.Workflow, error) {
	defJSON, err := json.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow definition: %w", err)
	}

	row := s.db.QueryRow(ctx,
		"INSERT INTO workflows (name, definition) VALUES ($1, $2) RETURNING id, name, definition, created_at",
		name, defJSON)
	return scanWorkflow(row)
}

// GetWorkflow retrieves a workflow by id.
func (s *PostgresStore) GetWorkflow(ctx context.Context, id int) (*models.Workflow, error) {
	row := s.db.QueryRow(ctx,
		"SELECT id, name, definition, created_at FROM workflows WHERE id = $1", id)
	wf, err := scanWorkflow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return wf, err
}

// ListWorkflows returns workflows ordered by id.
func (s *PostgresStore) ListWorkflows(ctx context.Context, offset, limit int) ([]models.Workflow, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, name, definition, created_at FROM workflows ORDER BY id OFFSET $1 LIMIT $2",
		offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workflows := []models.Workflow{}
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// UpdateWorkflow applies a partial update: only non-nil fields of upd are
// written, everything else is left untouched.
func (s *PostgresStore) UpdateWorkflow(ctx context.Context, id int, upd models.WorkflowUpdate) (*models.Workflow, error) {
	sets := []string{}
	args := []any{}
	i := 1

	if upd.Name != nil {
		sets = append(sets, fmt.Sprintf("name = $%d", i))
		args = append(args, *upd.Name)
		i++
	}
	if upd.Definition != nil {
		defJSON, err := json.Marshal(upd.Definition)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal workflow definition: %w", err)
		}
		sets = append(sets, fmt.Sprintf("definition = $%d", i))
		args = append(args, defJSON)
		i++
	}

	if len(sets) == 0 {
		return s.GetWorkflow(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE workflows SET %s WHERE id = $%d RETURNING id, name, definition, created_at",
		strings.Join(sets, ", "), i)

	wf, err := scanWorkflow(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return wf, err
}

// DeleteWorkflow removes a workflow. Deleting an absent id is not an error.
func (s *PostgresStore) DeleteWorkflow(ctx context.Context, id int) (*models.Workflow, error) {
	row := s.db.QueryRow(ctx,
		"DELETE FROM workflows WHERE id = $1 RETURNING id, name, definition, created_at", id)
	wf, err := scanWorkflow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return wf, err
}

// CreateDocument persists an ingested document.
func (s *PostgresStore) CreateDocument(ctx context.Context, filename, content string) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		"INSERT INTO documents (filename, content) VALUES ($1, $2) RETURNING id, filename, content, created_at",
		filename, content).Scan(&doc.ID, &doc.Filename, &doc.Content, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetDocument retrieves a document by id.
func (s *PostgresStore) GetDocument(ctx context.Context, id int) (*models.Document, error) {
	var doc models.Document
	err := s.db.QueryRow(ctx,
		"SELECT id, filename, content, created_at FROM documents WHERE id = $1", id).
		Scan(&doc.ID, &doc.Filename, &doc.Content, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns documents ordered by id.
func (s *PostgresStore) ListDocuments(ctx context.Context, offset, limit int) ([]models.Document, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, filename, content, created_at FROM documents ORDER BY id OFFSET $1 LIMIT $2",
		offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var doc models.Document
		if err := rows.Scan(&doc.ID, &doc.Filename, &doc.Content, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CreateChatLog appends one chat history entry.
func (s *PostgresStore) CreateChatLog(ctx context.Context, workflowID int, sender, message string) (*models.ChatLog, error) {
	var entry models.ChatLog
	err := s.db.QueryRow(ctx,
		"INSERT INTO chat_logs (workflow_id, sender, message) VALUES ($1, $2, $3) RETURNING id, workflow_id, sender, message, created_at",
		workflowID, sender, message).
		Scan(&entry.ID, &entry.WorkflowID, &entry.Sender, &entry.Message, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListChatLogsByWorkflow returns a workflow's chat history in creation order.
func (s *PostgresStore) ListChatLogsByWorkflow(ctx context.Context, workflowID, offset, limit int) ([]models.ChatLog, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, workflow_id, sender, message, created_at FROM chat_logs WHERE workflow_id = $1 ORDER BY id OFFSET $2 LIMIT $3",
		workflowID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.ChatLog{}
	for rows.Next() {
		var entry models.ChatLog
		if err := rows.Scan(&entry.ID, &entry.WorkflowID, &entry.Sender, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var wf models.Workflow
	var defJSON []byte
	if err := row.Scan(&wf.ID, &wf.Name, &defJSON, &wf.CreatedAt); err != nil {
		return nil, err
	}
	if len(defJSON) > 0 {
		if err := json.Unmarshal(defJSON, &wf.Definition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow definition: %w", err)
		}
	}
	return &wf, nil
}
