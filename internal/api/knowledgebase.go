package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"flowstack/backend/internal/providers"
)

const defaultKnowledgeTopK = 3

// QueryKnowledgeBase embeds the query and returns the vector index's raw
// top-k result, unnormalized.
// (POST /api/v1/knowledge-base/query)
func (s *Server) QueryKnowledgeBase(c echo.Context) error {
	ctx := c.Request().Context()

	var req KnowledgeQueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TopK == 0 {
		req.TopK = defaultKnowledgeTopK
	}

	result, err := s.LLM.QueryKnowledgeBase(ctx, req.Query, req.TopK)
	if errors.Is(err, providers.ErrEmbeddingsUnavailable) {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Embedding provider not configured")
	}
	var provErr *providers.ProviderError
	if errors.As(err, &provErr) {
		return echo.NewHTTPError(http.StatusBadGateway, provErr.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}
