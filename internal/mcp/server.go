// Package mcp exposes workflow execution and knowledge-base retrieval as MCP
// tools, sharing the service layer with the HTTP API.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"flowstack/backend/internal/repository"
	"flowstack/backend/internal/services"
	"flowstack/backend/pkg/models"
)

type Server struct {
	mcpServer *server.MCPServer
	workflows repository.WorkflowStore
	chatLogs  repository.ChatLogStore
	executor  *services.Executor
	llm       *services.LLMService
	logger    zerolog.Logger
}

func NewServer(workflows repository.WorkflowStore, chatLogs repository.ChatLogStore, executor *services.Executor, llm *services.LLMService, logger zerolog.Logger) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"FlowStack",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		workflows: workflows,
		chatLogs:  chatLogs,
		executor:  executor,
		llm:       llm,
		logger:    logger,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"execute_workflow",
			mcp.WithDescription("Execute a stored workflow against a natural-language query"),
			mcp.WithNumber("workflow_id", mcp.Required(), mcp.Description("The ID of the workflow to execute")),
			mcp.WithString("query", mcp.Required(), mcp.Description("The query to run through the workflow")),
		),
		s.handleExecuteWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"query_knowledge_base",
			mcp.WithDescription("Retrieve the most similar ingested documents for a query"),
			mcp.WithString("query", mcp.Required(), mcp.Description("The query to search for")),
			mcp.WithNumber("top_k", mcp.Description("How many results to return (default 3)")),
		),
		s.handleQueryKnowledgeBase,
	)
}

func (s *Server) handleExecuteWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workflowIDRaw, ok := args["workflow_id"].(float64)
	if !ok || workflowIDRaw < 1 {
		return mcp.NewToolResultError("Missing required parameter: workflow_id"), nil
	}
	workflowID := int(workflowIDRaw)

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("Missing required parameter: query"), nil
	}

	wf, err := s.workflows.GetWorkflow(ctx, workflowID)
	if errors.Is(err, repository.ErrNotFound) {
		return mcp.NewToolResultError("Workflow not found"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to load workflow: %v", err)), nil
	}

	if _, err := s.chatLogs.CreateChatLog(ctx, workflowID, models.SenderUser, query); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to record query: %v", err)), nil
	}

	result := s.executor.Execute(ctx, wf.Definition, query)

	botMessage := result.Response
	if result.Error != "" {
		botMessage = result.Error
	}
	if _, err := s.chatLogs.CreateChatLog(ctx, workflowID, models.SenderBot, botMessage); err != nil {
		s.logger.Error().Err(err).Int("workflow_id", workflowID).Msg("failed to record bot chat log entry")
	}

	jsonBytes, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleQueryKnowledgeBase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return mcp.NewToolResultError("Missing required parameter: query"), nil
	}

	topK := 3
	if v, ok := args["top_k"].(float64); ok && v > 0 {
		topK = int(v)
	}

	result, err := s.llm.QueryKnowledgeBase(ctx, query, topK)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to query knowledge base: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
