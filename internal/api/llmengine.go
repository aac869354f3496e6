package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"flowstack/backend/internal/providers"
	"flowstack/backend/internal/repository"
	"flowstack/backend/pkg/models"
)

// llmTestPrompt is the fixed canned prompt used by the test endpoint.
const llmTestPrompt = "Reply with the single word: pong"

// ExecuteWorkflow runs a stored workflow against a query. One user-sender and
// one bot-sender chat log entry are written per call, even when the executor
// produces an error result; the bot entry then records the error text. A
// failed bot-entry write is logged and suppressed so a logging fault never
// fails a successful generation.
// (POST /api/v1/llm/workflow/:workflow_id/execute)
func (s *Server) ExecuteWorkflow(c echo.Context) error {
	ctx := c.Request().Context()

	workflowID, err := pathID(c, "workflow_id")
	if err != nil {
		return err
	}

	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	wf, err := s.Workflows.GetWorkflow(ctx, workflowID)
	if errors.Is(err, repository.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Workflow not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if _, err := s.ChatLogs.CreateChatLog(ctx, workflowID, models.SenderUser, req.Query); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to record query: "+err.Error())
	}

	result := s.Executor.Execute(ctx, wf.Definition, req.Query)

	botMessage := result.Response
	if result.Error != "" {
		botMessage = result.Error
	}
	if _, err := s.ChatLogs.CreateChatLog(ctx, workflowID, models.SenderBot, botMessage); err != nil {
		s.Logger.Error().Err(err).Int("workflow_id", workflowID).Msg("failed to record bot chat log entry")
	}

	return c.JSON(http.StatusOK, result)
}

// LLMStatus reports which provider credentials are configured. Presence
// booleans only, never values.
// (GET /api/v1/llm/status)
func (s *Server) LLMStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Providers)
}

// LLMTest issues one fixed canned prompt through the completion provider and
// reports the outcome.
// (POST /api/v1/llm/test)
func (s *Server) LLMTest(c echo.Context) error {
	ctx := c.Request().Context()

	var req LLMTestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}
	if req.Provider == "" {
		req.Provider = providers.ProviderOpenAI
	}

	response, err := s.Completion.Generate(ctx, providers.GenerationRequest{
		Provider:    req.Provider,
		Prompt:      llmTestPrompt,
		Temperature: 0,
		MaxTokens:   16,
	})
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"status": "error", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "response": response})
}
