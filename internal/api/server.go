// Package api contains the HTTP handlers for the workflow builder backend.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"flowstack/backend/internal/repository"
	"flowstack/backend/internal/services"
)

// ProviderStatus reports which provider credentials are configured. Values
// are presence booleans only, never the credentials themselves.
type ProviderStatus struct {
	OpenAI  bool `json:"openai"`
	Mistral bool `json:"mistral"`
	Gemini  bool `json:"gemini"`
	SerpAPI bool `json:"serpapi"`
}

// Server holds the dependencies for the API server.
type Server struct {
	Workflows repository.WorkflowStore
	Documents repository.DocumentStore
	ChatLogs  repository.ChatLogStore

	DocService *services.DocumentService
	LLM        *services.LLMService
	Executor   *services.Executor
	Completion services.CompletionClient

	Providers ProviderStatus
	Logger    zerolog.Logger

	// UploadDir is where multipart uploads are spooled before ingestion.
	// Empty means the OS temp directory.
	UploadDir string
}

// Register mounts all handlers: the welcome and health endpoints at the root
// and the resource routes under the /api/v1 group.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.Welcome)
	e.GET("/healthz", s.Health)

	g := e.Group("/api/v1")

	g.POST("/workflows", s.CreateWorkflow)
	g.GET("/workflows", s.ListWorkflows)
	g.GET("/workflows/:id", s.GetWorkflow)
	g.PUT("/workflows/:id", s.UpdateWorkflow)
	g.DELETE("/workflows/:id", s.DeleteWorkflow)

	g.POST("/documents/upload", s.UploadDocument)
	g.GET("/documents", s.ListDocuments)
	g.GET("/documents/:id", s.GetDocument)

	g.GET("/chat/history/:workflow_id", s.GetChatHistory)

	g.POST("/knowledge-base/query", s.QueryKnowledgeBase)

	g.POST("/llm/workflow/:workflow_id/execute", s.ExecuteWorkflow)
	g.GET("/llm/status", s.LLMStatus)
	g.POST("/llm/test", s.LLMTest)
}

// Welcome returns the API greeting.
func (s *Server) Welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "Welcome to the No-Code/Low-Code Workflow API"})
}

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
}

// Health returns basic health status (always 200 OK).
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "flowstack-backend",
	})
}

// pathID parses an integer id path parameter.
func pathID(c echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// pagination reads the skip/limit query parameters with the API defaults.
func pagination(c echo.Context) (skip, limit int) {
	skip, limit = 0, 100
	if v := c.QueryParam("skip"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			skip = n
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return skip, limit
}
