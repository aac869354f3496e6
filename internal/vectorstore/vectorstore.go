// Package vectorstore implements the vector-similarity index over Postgres
// with the pgvector extension. It exposes the collection contract the
// orchestrator and ingestion pipeline expect: get-or-create a named
// collection, add entries, query nearest neighbors.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DefaultCollection is the collection holding ingested document text.
const DefaultCollection = "documents"

// QueryResult is the raw result of a similarity query, in nearest-first
// order. The knowledge-base endpoint returns this shape unnormalized.
type QueryResult struct {
	IDs       []string         `json:"ids"`
	Documents []string         `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
	Distances []float64        `json:"distances"`
}

// Store hands out collection handles backed by the shared vector_entries
// table.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a Store. The backing table is created by
// repository.Migrate.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// GetOrCreateCollection returns a handle to the named collection. Collections
// have no existence of their own beyond their entries, so this never fails on
// an empty collection.
func (s *Store) GetOrCreateCollection(ctx context.Context, name string) (*Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name must not be empty")
	}
	return &Collection{db: s.db, name: name}, nil
}

// Collection is a named slice of the vector index.
type Collection struct {
	db   *pgxpool.Pool
	name string
}

// Add upserts one entry. Re-adding an id replaces its embedding, text and
// metadata.
func (c *Collection) Add(ctx context.Context, id string, embedding []float32, document string, metadata map[string]any) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = c.db.Exec(ctx,
		`INSERT INTO vector_entries (collection, id, embedding, document, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (collection, id)
		 DO UPDATE SET embedding = EXCLUDED.embedding, document = EXCLUDED.document, metadata = EXCLUDED.metadata`,
		c.name, id, pgvector.NewVector(embedding), document, metaJSON)
	return err
}

// Query returns up to topK entries nearest to embedding, fewer when the
// collection holds fewer. An empty collection yields an empty result, never
// an error.
func (c *Collection) Query(ctx context.Context, embedding []float32, topK int) (*QueryResult, error) {
	rows, err := c.db.Query(ctx,
		`SELECT id, document, metadata, embedding <-> $2 AS distance
		 FROM vector_entries
		 WHERE collection = $1
		 ORDER BY embedding <-> $2
		 LIMIT $3`,
		c.name, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}
	defer rows.Close()

	result := &QueryResult{
		IDs:       []string{},
		Documents: []string{},
		Metadatas: []map[string]any{},
		Distances: []float64{},
	}
	for rows.Next() {
		var (
			id       string
			document string
			metaJSON []byte
			distance float64
		)
		if err := rows.Scan(&id, &document, &metaJSON, &distance); err != nil {
			return nil, err
		}
		metadata := map[string]any{}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", id, err)
			}
		}
		result.IDs = append(result.IDs, id)
		result.Documents = append(result.Documents, document)
		result.Metadatas = append(result.Metadatas, metadata)
		result.Distances = append(result.Distances, distance)
	}
	return result, rows.Err()
}

// Count returns the number of entries in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRow(ctx,
		"SELECT count(*) FROM vector_entries WHERE collection = $1", c.name).Scan(&n)
	return n, err
}
