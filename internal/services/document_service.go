package services

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"flowstack/backend/internal/ingestion"
	"flowstack/backend/internal/repository"
	"flowstack/backend/internal/vectorstore"
	"flowstack/backend/pkg/models"
)

// IndexOutcome reports the best-effort indexing step of ingestion. A false
// Indexed never invalidates the document row; Reason says why indexing was
// skipped or failed.
type IndexOutcome struct {
	Indexed bool   `json:"indexed"`
	Reason  string `json:"reason,omitempty"`
}

// DocumentService runs the ingestion pipeline: extract text, persist the
// document row, then best-effort embed and index it.
type DocumentService struct {
	docs      repository.DocumentStore
	embedder  Embedder
	vectors   VectorIndex
	extractor ingestion.Extractor
	logger    zerolog.Logger
}

// NewDocumentService creates a DocumentService.
func NewDocumentService(docs repository.DocumentStore, embedder Embedder, vectors VectorIndex, extractor ingestion.Extractor, logger zerolog.Logger) *DocumentService {
	return &DocumentService{
		docs:      docs,
		embedder:  embedder,
		vectors:   vectors,
		extractor: extractor,
		logger:    logger,
	}
}

// CreateFromFile ingests the uploaded file at filePath. Extraction or
// persistence failure aborts the pipeline with an error and no document row.
// Once the row is committed, embedding/indexing failures are logged and
// reported through the IndexOutcome, never as an error. The file at filePath
// is removed on every exit path.
func (s *DocumentService) CreateFromFile(ctx context.Context, filePath, filename string) (*models.Document, IndexOutcome, error) {
	defer func() {
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			s.logger.Error().Err(err).Str("path", filePath).Msg("failed to remove temporary upload")
		}
	}()

	content, err := s.extractor.ExtractText(filePath)
	if err != nil {
		return nil, IndexOutcome{}, fmt.Errorf("text extraction failed for %s: %w", filename, err)
	}

	doc, err := s.docs.CreateDocument(ctx, filename, content)
	if err != nil {
		return nil, IndexOutcome{}, fmt.Errorf("failed to persist document %s: %w", filename, err)
	}

	outcome := s.indexDocument(ctx, doc)
	return doc, outcome, nil
}

func (s *DocumentService) indexDocument(ctx context.Context, doc *models.Document) IndexOutcome {
	if !s.embedder.Available() {
		s.logger.Warn().Str("filename", doc.Filename).Msg("embedding provider unavailable, skipping vector indexing")
		return IndexOutcome{Reason: "embedding provider unavailable"}
	}

	embedding, err := s.embedder.Embed(ctx, doc.Content)
	if err != nil {
		s.logger.Error().Err(err).Str("filename", doc.Filename).Msg("failed to embed document")
		return IndexOutcome{Reason: fmt.Sprintf("embedding failed: %v", err)}
	}

	collection, err := s.vectors.GetOrCreateCollection(ctx, vectorstore.DefaultCollection)
	if err != nil {
		s.logger.Error().Err(err).Str("filename", doc.Filename).Msg("failed to open vector collection")
		return IndexOutcome{Reason: fmt.Sprintf("vector collection unavailable: %v", err)}
	}

	metadata := map[string]any{
		"filename": doc.Filename,
		"source":   "openai",
		"doc_id":   doc.ID,
	}
	if err := collection.Add(ctx, strconv.Itoa(doc.ID), embedding, doc.Content, metadata); err != nil {
		s.logger.Error().Err(err).Str("filename", doc.Filename).Msg("failed to index document")
		return IndexOutcome{Reason: fmt.Sprintf("vector indexing failed: %v", err)}
	}

	s.logger.Info().Str("filename", doc.Filename).Int("doc_id", doc.ID).Msg("document indexed")
	return IndexOutcome{Indexed: true}
}
