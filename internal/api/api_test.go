package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowstack/backend/internal/providers"
	"flowstack/backend/internal/repository"
	"flowstack/backend/internal/services"
	"flowstack/backend/internal/vectorstore"
	"flowstack/backend/pkg/models"
)

// memStore is an in-memory implementation of the three store interfaces.
type memStore struct {
	mu sync.Mutex

	workflows  map[int]models.Workflow
	documents  map[int]models.Document
	chatLogs   []models.ChatLog
	nextWfID   int
	nextDocID  int
	nextLogID  int
	chatLogErr error
	// failBotLog makes only bot-sender chat log writes fail.
	failBotLog bool
}

func newMemStore() *memStore {
	return &memStore{
		workflows: make(map[int]models.Workflow),
		documents: make(map[int]models.Document),
	}
}

func (m *memStore) CreateWorkflow(ctx context.Context, name string, def models.WorkflowDefinition) (*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextWfID++
	wf := models.Workflow{ID: m.nextWfID, Name: name, Definition: def, CreatedAt: time.Now()}
	m.workflows[wf.ID] = wf
	return &wf, nil
}

func (m *memStore) GetWorkflow(ctx context.Context, id int) (*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &wf, nil
}

func (m *memStore) ListWorkflows(ctx context.Context, offset, limit int) ([]models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Workflow{}
	for id := 1; id <= m.nextWfID; id++ {
		if wf, ok := m.workflows[id]; ok {
			out = append(out, wf)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) UpdateWorkflow(ctx context.Context, id int, upd models.WorkflowUpdate) (*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.Name != nil {
		wf.Name = *upd.Name
	}
	if upd.Definition != nil {
		wf.Definition = *upd.Definition
	}
	m.workflows[id] = wf
	return &wf, nil
}

func (m *memStore) DeleteWorkflow(ctx context.Context, id int) (*models.Workflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wf, ok := m.workflows[id]
	if !ok {
		return nil, nil
	}
	delete(m.workflows, id)
	return &wf, nil
}

func (m *memStore) CreateDocument(ctx context.Context, filename, content string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDocID++
	doc := models.Document{ID: m.nextDocID, Filename: filename, Content: content, CreatedAt: time.Now()}
	m.documents[doc.ID] = doc
	return &doc, nil
}

func (m *memStore) GetDocument(ctx context.Context, id int) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.documents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &doc, nil
}

func (m *memStore) ListDocuments(ctx context.Context, offset, limit int) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Document{}
	for id := 1; id <= m.nextDocID; id++ {
		if doc, ok := m.documents[id]; ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (m *memStore) CreateChatLog(ctx context.Context, workflowID int, sender, message string) (*models.ChatLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chatLogErr != nil {
		return nil, m.chatLogErr
	}
	if m.failBotLog && sender == models.SenderBot {
		return nil, errors.New("chat log write failed")
	}
	m.nextLogID++
	entry := models.ChatLog{ID: m.nextLogID, WorkflowID: workflowID, Sender: sender, Message: message, CreatedAt: time.Now()}
	m.chatLogs = append(m.chatLogs, entry)
	return &entry, nil
}

func (m *memStore) ListChatLogsByWorkflow(ctx context.Context, workflowID, offset, limit int) ([]models.ChatLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ChatLog{}
	for _, entry := range m.chatLogs {
		if entry.WorkflowID == workflowID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Provider fakes.

type stubCompletion struct {
	response string
	err      error
	lastReq  providers.GenerationRequest
}

func (s *stubCompletion) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type stubEmbedder struct {
	available bool
	vector    []float32
}

func (s *stubEmbedder) Available() bool { return s.available }

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if !s.available {
		return nil, providers.ErrEmbeddingsUnavailable
	}
	return s.vector, nil
}

type stubSearch struct{}

func (stubSearch) Search(ctx context.Context, query string) ([]providers.SearchResult, error) {
	return nil, nil
}

type stubCollection struct {
	result *vectorstore.QueryResult
}

func (s *stubCollection) Add(ctx context.Context, id string, embedding []float32, document string, metadata map[string]any) error {
	return nil
}

func (s *stubCollection) Query(ctx context.Context, embedding []float32, topK int) (*vectorstore.QueryResult, error) {
	if s.result != nil {
		return s.result, nil
	}
	return &vectorstore.QueryResult{
		IDs:       []string{},
		Documents: []string{},
		Metadatas: []map[string]any{},
		Distances: []float64{},
	}, nil
}

type stubIndex struct {
	collection *stubCollection
}

func (s *stubIndex) GetOrCreateCollection(ctx context.Context, name string) (services.VectorCollection, error) {
	return s.collection, nil
}

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) ExtractText(path string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type testEnv struct {
	e          *echo.Echo
	store      *memStore
	completion *stubCompletion
	extractor  *stubExtractor
	uploadDir  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	completion := &stubCompletion{response: "4"}
	embedder := &stubEmbedder{available: true, vector: []float32{0.1}}
	index := &stubIndex{collection: &stubCollection{}}
	extractor := &stubExtractor{text: "extracted text"}
	logger := zerolog.Nop()

	llm := services.NewLLMService(completion, embedder, stubSearch{}, index, logger)
	uploadDir := t.TempDir()

	srv := &Server{
		Workflows:  store,
		Documents:  store,
		ChatLogs:   store,
		DocService: services.NewDocumentService(store, embedder, index, extractor, logger),
		LLM:        llm,
		Executor:   services.NewExecutor(llm),
		Completion: completion,
		Providers:  ProviderStatus{OpenAI: true},
		Logger:     logger,
		UploadDir:  uploadDir,
	}

	e := echo.New()
	srv.Register(e)

	return &testEnv{e: e, store: store, completion: completion, extractor: extractor, uploadDir: uploadDir}
}

func (env *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func engineWorkflowDefinition(data map[string]any) models.WorkflowDefinition {
	return models.WorkflowDefinition{
		Nodes: []models.Node{{ID: "engine", Type: models.NodeTypeLLMEngine, Data: data}},
		Edges: []models.Edge{},
	}
}

func TestCreateAndGetWorkflow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:       "My Flow",
		Definition: engineWorkflowDefinition(nil),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	created := decode[models.Workflow](t, rec)
	assert.Equal(t, 1, created.ID)
	assert.Equal(t, "My Flow", created.Name)

	rec = env.request(t, http.MethodGet, "/api/v1/workflows/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.Workflow](t, rec)
	assert.Equal(t, created.ID, got.ID)
	require.Len(t, got.Definition.Nodes, 1)
	assert.Equal(t, models.NodeTypeLLMEngine, got.Definition.Nodes[0].Type)
}

func TestCreateWorkflowMissingName(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/workflows", map[string]any{
		"definition": engineWorkflowDefinition(nil),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetWorkflowNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/workflows/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Workflow not found")
}

func TestUpdateWorkflowPartial(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:       "Original",
		Definition: engineWorkflowDefinition(map[string]any{"llm_provider": "openai"}),
	})

	// Name-only update keeps the stored definition.
	rec := env.request(t, http.MethodPut, "/api/v1/workflows/1", map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decode[models.Workflow](t, rec)
	assert.Equal(t, "Renamed", updated.Name)
	require.Len(t, updated.Definition.Nodes, 1)
	assert.Equal(t, "openai", updated.Definition.Nodes[0].Data["llm_provider"])
}

func TestUpdateWorkflowNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPut, "/api/v1/workflows/42", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteWorkflowIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:       "Doomed",
		Definition: engineWorkflowDefinition(nil),
	})

	rec := env.request(t, http.MethodDelete, "/api/v1/workflows/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[models.Workflow](t, rec)
	assert.Equal(t, "Doomed", deleted.Name)

	// The second delete succeeds with a JSON null body.
	rec = env.request(t, http.MethodDelete, "/api/v1/workflows/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestExecuteWorkflowEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	env.completion.response = "4"
	env.request(t, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:       "Calc",
		Definition: engineWorkflowDefinition(nil),
	})

	rec := env.request(t, http.MethodPost, "/api/v1/llm/workflow/1/execute", QueryRequest{Query: "What is 2+2?"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[map[string]any](t, rec)
	assert.Equal(t, "4", result["response"])
	assert.NotContains(t, result, "error")

	// Exactly one user entry then one bot entry.
	require.Len(t, env.store.chatLogs, 2)
	assert.Equal(t, models.SenderUser, env.store.chatLogs[0].Sender)
	assert.Equal(t, "What is 2+2?", env.store.chatLogs[0].Message)
	assert.Equal(t, models.SenderBot, env.store.chatLogs[1].Sender)
	assert.Equal(t, "4", env.store.chatLogs[1].Message)
}

func TestExecuteWorkflowNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/llm/workflow/7/execute", QueryRequest{Query: "q"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, env.store.chatLogs)
}

func TestExecuteWorkflowNoEngineNode(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name: "Empty",
		Definition: models.WorkflowDefinition{
			Nodes: []models.Node{{ID: "n", Type: "textInput"}},
			Edges: []models.Edge{},
		},
	})

	rec := env.request(t, http.MethodPost, "/api/v1/llm/workflow/1/execute", QueryRequest{Query: "q"})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[map[string]any](t, rec)
	assert.Equal(t, "LLM Engine node not found in workflow.", result["error"])

	// The error path still records the full exchange.
	require.Len(t, env.store.chatLogs, 2)
	assert.Equal(t, models.SenderBot, env.store.chatLogs[1].Sender)
	assert.Equal(t, "LLM Engine node not found in workflow.", env.store.chatLogs[1].Message)
}

func TestExecuteWorkflowProviderErrorRecorded(t *testing.T) {
	env := newTestEnv(t)
	provErr := &providers.ProviderError{Provider: "openai", Status: 429, Body: "rate limited"}
	env.completion.err = provErr
	env.request(t, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:       "Flaky",
		Definition: engineWorkflowDefinition(nil),
	})

	rec := env.request(t, http.MethodPost, "/api/v1/llm/workflow/1/execute", QueryRequest{Query: "q"})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[map[string]any](t, rec)
	assert.Equal(t, provErr.Error(), result["error"])

	require.Len(t, env.store.chatLogs, 2)
	assert.Equal(t, provErr.Error(), env.store.chatLogs[1].Message)
}

func TestExecuteWorkflowBotLogFailureSuppressed(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:       "Calc",
		Definition: engineWorkflowDefinition(nil),
	})
	env.store.failBotLog = true

	rec := env.request(t, http.MethodPost, "/api/v1/llm/workflow/1/execute", QueryRequest{Query: "q"})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[map[string]any](t, rec)
	assert.Equal(t, "4", result["response"])

	// Only the user entry landed; the bot write failure stayed internal.
	require.Len(t, env.store.chatLogs, 1)
	assert.Equal(t, models.SenderUser, env.store.chatLogs[0].Sender)
}

func TestChatHistory(t *testing.T) {
	env := newTestEnv(t)
	env.request(t, http.MethodPost, "/api/v1/workflows", CreateWorkflowRequest{
		Name:       "Calc",
		Definition: engineWorkflowDefinition(nil),
	})
	env.request(t, http.MethodPost, "/api/v1/llm/workflow/1/execute", QueryRequest{Query: "hi"})

	rec := env.request(t, http.MethodGet, "/api/v1/chat/history/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decode[[]models.ChatLog](t, rec)
	require.Len(t, entries, 2)
	assert.Equal(t, models.SenderUser, entries[0].Sender)
	assert.Equal(t, models.SenderBot, entries[1].Sender)
}

func TestChatHistoryUnknownWorkflowIsEmpty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/chat/history/123", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/upload", &buf)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestUploadDocument(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, uploadRequest(t, "report.pdf", []byte("%PDF-1.4 data")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	doc := decode[models.Document](t, rec)
	assert.Equal(t, "report.pdf", doc.Filename)
	assert.Equal(t, "extracted text", doc.Content)

	// The spooled file must not survive ingestion.
	entries, err := os.ReadDir(env.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadDocumentExtractionFailure(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.err = fmt.Errorf("not a pdf")

	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, uploadRequest(t, "broken.pdf", []byte("junk")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, env.store.documents)

	entries, err := os.ReadDir(env.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadDocumentMissingFile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/documents/upload", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocumentNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/documents/5", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Document not found")
}

func TestQueryKnowledgeBase(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/knowledge-base/query", KnowledgeQueryRequest{Query: "anything"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decode[vectorstore.QueryResult](t, rec)
	assert.NotNil(t, result.IDs)
	assert.Empty(t, result.IDs)
}

func TestQueryKnowledgeBaseEmbeddingsUnavailable(t *testing.T) {
	store := newMemStore()
	logger := zerolog.Nop()
	llm := services.NewLLMService(&stubCompletion{}, &stubEmbedder{available: false}, stubSearch{}, &stubIndex{collection: &stubCollection{}}, logger)
	srv := &Server{
		Workflows:  store,
		Documents:  store,
		ChatLogs:   store,
		LLM:        llm,
		Executor:   services.NewExecutor(llm),
		Completion: &stubCompletion{},
		Logger:     logger,
	}
	e := echo.New()
	srv.Register(e)

	body, err := json.Marshal(KnowledgeQueryRequest{Query: "q"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/knowledge-base/query", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Embedding provider not configured")
}

func TestLLMStatusReportsPresenceOnly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/llm/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[map[string]bool](t, rec)
	assert.Equal(t, map[string]bool{
		"openai":  true,
		"mistral": false,
		"gemini":  false,
		"serpapi": false,
	}, status)
}

func TestLLMTest(t *testing.T) {
	env := newTestEnv(t)
	env.completion.response = "pong"

	rec := env.request(t, http.MethodPost, "/api/v1/llm/test", LLMTestRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "pong", result["response"])
	assert.Equal(t, providers.ProviderOpenAI, env.completion.lastReq.Provider)
}

func TestLLMTestError(t *testing.T) {
	env := newTestEnv(t)
	env.completion.err = &providers.ProviderError{Provider: "openai", Body: "API key not configured"}

	rec := env.request(t, http.MethodPost, "/api/v1/llm/test", LLMTestRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	result := decode[map[string]any](t, rec)
	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["error"], "API key not configured")
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[HealthStatus](t, rec)
	assert.Equal(t, "ok", status.Status)
}
