package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docqa-assistant/internal/ai"
	"docqa-assistant/internal/bootstrap"
	"docqa-assistant/internal/config"
	"docqa-assistant/internal/retrieval"
	"docqa-assistant/internal/session"
)

type stubModel struct {
	name string
}

func (m *stubModel) Name() string { return m.name }

func (m *stubModel) Invoke(_ context.Context, prompt string) (string, error) {
	return "summary of " + m.name, nil
}

func (m *stubModel) Stream(_ context.Context, _ string, onChunk func(string) error) (string, error) {
	parts := []string{"Gophers ", "love\nGo"}
	for _, p := range parts {
		if err := onChunk(p); err != nil {
			return "", err
		}
	}
	return strings.Join(parts, ""), nil
}

// blockingModel parks in Invoke until release is closed.
type blockingModel struct {
	stubModel
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (m *blockingModel) Invoke(ctx context.Context, prompt string) (string, error) {
	m.once.Do(func() { close(m.entered) })
	select {
	case <-m.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return m.stubModel.Invoke(ctx, prompt)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	app    *bootstrap.App
	router *gin.Engine
	token  string
}

type testSetup struct {
	build     ai.Builder
	customize func(*bootstrap.App)
}

type testOption func(*testSetup)

func withBuilder(build ai.Builder) testOption {
	return func(s *testSetup) { s.build = build }
}

// withApp runs before the router is built.
func withApp(fn func(*bootstrap.App)) testOption {
	return func(s *testSetup) { s.customize = fn }
}

func newTestServer(t *testing.T, opts ...testOption) *testServer {
	t.Helper()
	t.Setenv("CONFIG_FILE", "testdata/missing.toml")
	t.Setenv("DOTENV_FILE", "testdata/missing.env")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("ARCHIVE_ENABLED", "false")

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.App.GinMode = gin.TestMode

	setup := testSetup{
		build: func(_ context.Context, c ai.ChatConfig) (ai.ChatModel, error) {
			return &stubModel{name: c.Model}, nil
		},
	}
	for _, opt := range opts {
		opt(&setup)
	}
	app := bootstrap.Assemble(cfg, zap.NewNop(), setup.build, retrieval.LocalFactory{}, nil)
	if setup.customize != nil {
		setup.customize(app)
	}
	return &testServer{t: t, app: app, router: NewRouter(app)}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(files map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(s.t, err)
		_, err = part.Write([]byte(content))
		require.NoError(s.t, err)
	}
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) startSession() {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(s.t, http.StatusOK, rec.Code)
	var data struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	decodeData(s.t, rec, &data)
	require.NotEmpty(s.t, data.SessionID)
	require.NotEmpty(s.t, data.Token)
	s.token = data.Token
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.Equal(t, 0, env.Code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"archive_enabled":false`)
}

func TestSessionAuthRejectsMissingAndBadTokens(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	s.token = "not-a-jwt"
	rec = s.do(http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 40100, decodeEnvelope(t, rec).Code)
}

func TestOptionsArePublic(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/api/v1/session/options", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]json.RawMessage
	decodeData(t, rec, &data)
	assert.Contains(t, data, "embedding_models")
	assert.Contains(t, data, "generation_models")
	assert.Contains(t, data, "supported_formats")
	assert.JSONEq(t, `"local"`, string(data["embedding_provider"]))
	assert.JSONEq(t, `false`, string(data["embedding_model_applied"]))
}

func TestSessionInfoSaysLocalEmbeddingIgnoresModelChoice(t *testing.T) {
	s := newTestServer(t)
	s.startSession()

	rec := s.do(http.MethodPut, "/api/v1/session/config", map[string]string{"embedding_model": "all-mpnet-base-v2"})
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		EmbeddingModel        string `json:"embedding_model"`
		EmbeddingProvider     string `json:"embedding_provider"`
		EmbeddingModelApplied bool   `json:"embedding_model_applied"`
	}
	decodeData(t, rec, &info)
	assert.Equal(t, "all-mpnet-base-v2", info.EmbeddingModel)
	assert.Equal(t, "local", info.EmbeddingProvider)
	assert.False(t, info.EmbeddingModelApplied)
}

func TestActiveSessionOutlivesIdleTTL(t *testing.T) {
	const ttl = 300 * time.Millisecond
	s := newTestServer(t, withApp(func(a *bootstrap.App) {
		a.Sessions = session.NewStore(ttl, 50*time.Millisecond, zap.NewNop())
	}))
	s.startSession()

	deadline := time.Now().Add(3 * ttl)
	for time.Now().Before(deadline) {
		rec := s.do(http.MethodGet, "/api/v1/session", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		time.Sleep(ttl / 4)
	}

	time.Sleep(2 * ttl)
	rec := s.do(http.MethodGet, "/api/v1/session", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 40101, decodeEnvelope(t, rec).Code)
}

func TestGeneratingVisibleWhileSummaryRuns(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	s := newTestServer(t, withBuilder(func(_ context.Context, c ai.ChatConfig) (ai.ChatModel, error) {
		return &blockingModel{stubModel: stubModel{name: c.Model}, entered: entered, release: release}, nil
	}))
	s.startSession()
	require.Equal(t, http.StatusOK, s.do(http.MethodPut, "/api/v1/session/config", map[string]string{"api_key": "k"}).Code)
	require.Equal(t, http.StatusOK, s.upload(map[string]string{"a.txt": "Gophers dig tunnels."}).Code)

	done := make(chan int, 1)
	go func() {
		done <- s.do(http.MethodPost, "/api/v1/summaries/a.txt", nil).Code
	}()
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		close(release)
		t.Fatal("summary generation never reached the model")
	}

	var listing struct {
		Generating []string `json:"generating"`
	}
	rec := s.do(http.MethodGet, "/api/v1/session/generating", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &listing)
	assert.Equal(t, []string{"a.txt"}, listing.Generating)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)

	rec = s.do(http.MethodGet, "/api/v1/session/generating", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &listing)
	assert.Empty(t, listing.Generating)
}

func TestChatRequiresKeyAndDocuments(t *testing.T) {
	s := newTestServer(t)
	s.startSession()

	rec := s.do(http.MethodPost, "/api/v1/chat/messages", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, 41201, decodeEnvelope(t, rec).Code)

	rec = s.do(http.MethodPut, "/api/v1/session/config", map[string]string{"api_key": "k"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/chat/messages", map[string]string{"message": "hi"})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, 41202, decodeEnvelope(t, rec).Code)

	rec = s.do(http.MethodPost, "/api/v1/chat/messages", map[string]string{"message": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/chat/messages", nil)
	var history []map[string]any
	decodeData(t, rec, &history)
	assert.Empty(t, history)
}

func TestDocumentChatSummaryFlow(t *testing.T) {
	s := newTestServer(t)
	s.startSession()

	rec := s.do(http.MethodPut, "/api/v1/session/config", map[string]string{
		"api_key":          "test-key",
		"generation_model": "gemini-2.5-pro",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPut, "/api/v1/session/config", map[string]string{"generation_model": "gpt-4"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.upload(map[string]string{
		"notes.txt": "Go is a language for gophers. Goroutines make concurrency simple.",
		"image.png": "binary",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var uploaded struct {
		Report struct {
			Processed []map[string]any    `json:"processed"`
			Errors    []map[string]string `json:"errors"`
		} `json:"report"`
		Documents []map[string]any `json:"documents"`
	}
	decodeData(t, rec, &uploaded)
	require.Len(t, uploaded.Report.Processed, 1)
	require.Len(t, uploaded.Report.Errors, 1)
	assert.Equal(t, "Unsupported format: png", uploaded.Report.Errors[0]["message"])
	assert.Len(t, uploaded.Documents, 1)

	rec = s.do(http.MethodPut, "/api/v1/chat/selection", map[string]string{"document": "notes.txt"})
	require.Equal(t, http.StatusOK, rec.Code)
	var selection struct {
		Mode        string   `json:"mode"`
		Suggestions []string `json:"suggestions"`
	}
	decodeData(t, rec, &selection)
	assert.Equal(t, "single", selection.Mode)
	assert.Len(t, selection.Suggestions, 4)

	rec = s.do(http.MethodPost, "/api/v1/chat/messages", map[string]string{"message": "What do gophers use?"})
	require.Equal(t, http.StatusOK, rec.Code)
	var turn struct {
		Outcome string `json:"outcome"`
		Answer  string `json:"answer"`
	}
	decodeData(t, rec, &turn)
	assert.Equal(t, "answered", turn.Outcome)
	assert.Equal(t, "Gophers love\nGo", turn.Answer)

	rec = s.do(http.MethodPost, "/api/v1/summaries/notes.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary struct {
		Content string `json:"content"`
	}
	decodeData(t, rec, &summary)
	assert.Equal(t, "summary of gemini-2.5-pro", summary.Content)

	rec = s.do(http.MethodGet, "/api/v1/summaries/notes.txt/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "summary_notes.txt_")
	assert.Contains(t, rec.Body.String(), "# Document Summary: notes.txt")

	rec = s.do(http.MethodGet, "/api/v1/chat/export?format=md", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "chat_export_")
	assert.Contains(t, rec.Body.String(), "## User\nWhat do gophers use?")

	rec = s.do(http.MethodDelete, "/api/v1/documents/notes.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/summaries/notes.txt", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/archive", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 40404, decodeEnvelope(t, rec).Code)
}

func TestChatStream(t *testing.T) {
	s := newTestServer(t)
	s.startSession()

	rec := s.do(http.MethodPost, "/api/v1/chat/stream", map[string]string{"message": "hello"})
	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	require.Equal(t, http.StatusOK, s.do(http.MethodPut, "/api/v1/session/config", map[string]string{"api_key": "k"}).Code)
	require.Equal(t, http.StatusOK, s.upload(map[string]string{"a.md": "# Title\n\nGophers are friendly."}).Code)

	rec = s.do(http.MethodPost, "/api/v1/chat/stream", map[string]string{"message": "who is friendly?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "data: Gophers \n\n")
	assert.Contains(t, body, "data: love\\nGo\n\n")
	assert.Contains(t, body, "event: done\ndata: {")
	assert.Contains(t, body, `"outcome":"answered"`)
}

func TestExportWithoutHistory(t *testing.T) {
	s := newTestServer(t)
	s.startSession()

	rec := s.do(http.MethodGet, "/api/v1/chat/export", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 40403, decodeEnvelope(t, rec).Code)

	rec = s.do(http.MethodGet, "/api/v1/chat/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
