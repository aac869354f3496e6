package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"flowstack/backend/internal/repository"
)

// UploadDocument receives a multipart upload, spools it to a temporary file
// and runs the ingestion pipeline. The temporary file is removed on every
// exit path.
// (POST /api/v1/documents/upload)
func (s *Server) UploadDocument(c echo.Context) error {
	ctx := c.Request().Context()

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read upload: "+err.Error())
	}
	defer src.Close()

	tmpPath, err := s.spoolUpload(src, fileHeader.Filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store upload: "+err.Error())
	}

	// CreateFromFile owns tmpPath from here on, including cleanup.
	doc, outcome, err := s.DocService.CreateFromFile(ctx, tmpPath, fileHeader.Filename)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !outcome.Indexed {
		s.Logger.Warn().Str("filename", doc.Filename).Str("reason", outcome.Reason).Msg("document stored without vector index entry")
	}
	return c.JSON(http.StatusOK, doc)
}

// spoolUpload writes the upload stream to a uniquely named temp file. The
// file is removed here only when spooling itself fails.
func (s *Server) spoolUpload(src io.Reader, filename string) (string, error) {
	dir := s.UploadDir
	if dir == "" {
		dir = os.TempDir()
	}
	tmpPath := filepath.Join(dir, fmt.Sprintf("upload-%s-%s", uuid.New().String(), filepath.Base(filename)))

	dst, err := os.Create(tmpPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

// GetDocument returns one document by id.
// (GET /api/v1/documents/:id)
func (s *Server) GetDocument(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	doc, err := s.Documents.GetDocument(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Document not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, doc)
}

// ListDocuments returns documents paged by skip/limit.
// (GET /api/v1/documents)
func (s *Server) ListDocuments(c echo.Context) error {
	ctx := c.Request().Context()
	skip, limit := pagination(c)

	docs, err := s.Documents.ListDocuments(ctx, skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, docs)
}
