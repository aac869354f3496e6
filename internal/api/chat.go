package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetChatHistory returns a workflow's chat log entries in creation order,
// paged by skip/limit. An unknown workflow id yields an empty list.
// (GET /api/v1/chat/history/:workflow_id)
func (s *Server) GetChatHistory(c echo.Context) error {
	ctx := c.Request().Context()

	workflowID, err := pathID(c, "workflow_id")
	if err != nil {
		return err
	}
	skip, limit := pagination(c)

	entries, err := s.ChatLogs.ListChatLogsByWorkflow(ctx, workflowID, skip, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entries)
}
