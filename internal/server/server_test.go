package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/portfolio-buddy/internal/assistant"
	"github.com/bull/portfolio-buddy/internal/embedding"
	"github.com/bull/portfolio-buddy/internal/generation"
	"github.com/bull/portfolio-buddy/internal/storage"
)

type fakeAsker struct {
	answer *assistant.Answer
	err    error
	got    []string
}

func (f *fakeAsker) Ask(ctx context.Context, question string) (*assistant.Answer, error) {
	f.got = append(f.got, question)
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(question) == "" {
		return nil, assistant.ErrEmptyQuestion
	}
	return f.answer, nil
}

type unhealthyStore struct {
	*storage.MemoryStore
}

func (unhealthyStore) Health(context.Context) error { return errors.New("connection refused") }

var jane = Profile{
	Name:     "Jane",
	FullName: "Jane Doe",
	Intro:    "Backend engineer",
	About:    "I build distributed systems.",
	Email:    "jane@example.com",
}

func newTestServer(t *testing.T, asker Asker, store storage.VectorStore) http.Handler {
	t.Helper()
	if store == nil {
		store = storage.NewMemoryStore()
		require.NoError(t, store.Reset(context.Background(), "hash-8", 8))
	}
	return New(Config{Profile: jane, Assistant: asker, Store: store}).Handler()
}

func postJSON(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postForm(h http.Handler, question string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(url.Values{"question": {question}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPage(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, &fakeAsker{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Hi, I'm Jane Doe")
	assert.Contains(t, body, "I build distributed systems.")
	assert.Contains(t, body, "mailto:jane@example.com")
	assert.Contains(t, body, `name="question"`)
	assert.Equal(t, 1, strings.Count(body, "<form"))
}

func TestPage_UnknownPath(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, &fakeAsker{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPageAsk(t *testing.T) {
	asker := &fakeAsker{answer: &assistant.Answer{Text: "Jane works on <distributed> systems."}}
	rec := postForm(newTestServer(t, asker, nil), "What does Jane do?")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Jane works on &lt;distributed&gt; systems.")
	assert.Equal(t, []string{"What does Jane do?"}, asker.got)
}

func TestPageAsk_Failure(t *testing.T) {
	asker := &fakeAsker{err: fmt.Errorf("generate answer: %w", generation.ErrUpstream)}
	rec := postForm(newTestServer(t, asker, nil), "What does Jane do?")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), FailureMessage)
	assert.Contains(t, rec.Body.String(), `value="What does Jane do?"`)
}

func TestAPIAsk(t *testing.T) {
	asker := &fakeAsker{answer: &assistant.Answer{
		Text:    "Five years of distributed systems.",
		Sources: []assistant.Source{{Index: 1, HeaderPath: "# Jane Doe > ## Experience", Score: 0.8}},
	}}
	rec := postJSON(newTestServer(t, asker, nil), `{"question":"What experience does Jane have?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Five years of distributed systems.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "# Jane Doe > ## Experience", resp.Sources[0].HeaderPath)
}

func TestAPIAsk_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
		msg    string
	}{
		{name: "empty question", body: `{"question":"   "}`, status: http.StatusBadRequest, msg: "Please enter a question."},
		{name: "invalid json", body: `{`, status: http.StatusBadRequest, msg: "question field"},
		{name: "too long", body: `{"question":"` + strings.Repeat("a", maxQuestionChars+1) + `"}`, status: http.StatusBadRequest, msg: "limited"},
		{name: "timeout", err: fmt.Errorf("generate answer: %w", generation.ErrTimeout), body: `{"question":"q"}`, status: http.StatusGatewayTimeout, msg: FailureMessage},
		{name: "embedding timeout", err: fmt.Errorf("embed question: %w", embedding.ErrTimeout), body: `{"question":"q"}`, status: http.StatusGatewayTimeout, msg: FailureMessage},
		{name: "upstream", err: fmt.Errorf("generate answer: %w", generation.ErrUpstream), body: `{"question":"q"}`, status: http.StatusBadGateway, msg: FailureMessage},
		{name: "mismatch", err: assistant.ErrEmbeddingMismatch, body: `{"question":"q"}`, status: http.StatusBadGateway, msg: FailureMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(newTestServer(t, &fakeAsker{err: tt.err, answer: &assistant.Answer{Text: "x"}}, nil), tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, tt.msg)
		})
	}
}

func TestAPIAsk_EmptySourcesIsArray(t *testing.T) {
	rec := postJSON(newTestServer(t, &fakeAsker{answer: &assistant.Answer{Text: "ok"}}, nil), `{"question":"q"}`)
	assert.JSONEq(t, `{"answer":"ok","sources":[]}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, &fakeAsker{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "memory", resp.Backend)
	assert.Equal(t, "hash-8", resp.EmbeddingModel)
}

func TestHealth_Unhealthy(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, &fakeAsker{}, unhealthyStore{storage.NewMemoryStore()}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "disconnected", resp.Store)
}

func TestListenAndServe_GracefulShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	store := storage.NewMemoryStore()
	srv := New(Config{Profile: jane, Assistant: &fakeAsker{}, Store: store})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
