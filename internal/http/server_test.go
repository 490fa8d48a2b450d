package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finbot/internal/assistant"
	"finbot/internal/log"
	"finbot/internal/middleware/trace"
)

type fakeRunner struct {
	out     assistant.Outcome
	err     error
	queries []string
}

func (f *fakeRunner) Run(_ context.Context, query string) (assistant.Outcome, error) {
	f.queries = append(f.queries, query)
	return f.out, f.err
}

func newTestServer(t *testing.T, runner Runner, cfg Config) *Server {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}
	s := NewServer(":0", runner, cfg)
	t.Cleanup(func() { s.limiter.Stop() })
	return s
}

func post(s *Server, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/finance", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestFinanceAnswers(t *testing.T) {
	runner := &fakeRunner{out: assistant.Outcome{
		Answer: "Added expense of 200 INR for coffee (Category: Food) at row 2",
		State:  assistant.StateDone,
	}}
	s := newTestServer(t, runner, Config{})

	rec := post(s, `{"query":"  I spent 200 on coffee  "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"response": runner.out.Answer}, decode(t, rec))
	assert.Equal(t, []string{"I spent 200 on coffee"}, runner.queries)
	assert.NotEmpty(t, rec.Header().Get(trace.HeaderRequestID))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestFinanceToolFailureIsStillOK(t *testing.T) {
	runner := &fakeRunner{out: assistant.Outcome{Answer: "Error: sheet unavailable", State: assistant.StateFailed}}
	s := newTestServer(t, runner, Config{})

	rec := post(s, `{"query":"show my budget"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Error: sheet unavailable", decode(t, rec)["response"])
}

func TestFinanceRejectsMissingQuery(t *testing.T) {
	for name, body := range map[string]string{
		"invalid json": `{"query":`,
		"missing":      `{}`,
		"blank":        `{"query":"   "}`,
		"wrong type":   `{"query":42}`,
	} {
		t.Run(name, func(t *testing.T) {
			runner := &fakeRunner{}
			s := newTestServer(t, runner, Config{})

			rec := post(s, body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, map[string]string{"error": "Query is required"}, decode(t, rec))
			assert.Empty(t, runner.queries)
		})
	}
}

func TestFinanceModelUnavailable(t *testing.T) {
	runner := &fakeRunner{
		out: assistant.Outcome{Answer: assistant.UnavailableAnswer, State: assistant.StateFailed},
		err: errors.Join(assistant.ErrModelUnavailable, errors.New("dial tcp: timeout")),
	}
	s := newTestServer(t, runner, Config{})

	rec := post(s, `{"query":"hi"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]string{"error": "Internal server error"}, decode(t, rec))
}

func TestFinanceBodyTooLarge(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, Config{MaxBodyBytes: 16})

	rec := post(s, `{"query":"`+strings.Repeat("a", 64)+`"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestFinanceMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, Config{})

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/finance", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestFinanceRateLimited(t *testing.T) {
	runner := &fakeRunner{out: assistant.Outcome{Answer: "ok"}}
	s := newTestServer(t, runner, Config{RequestsPerMinute: 2})

	assert.Equal(t, http.StatusOK, post(s, `{"query":"a"}`).Code)
	assert.Equal(t, http.StatusOK, post(s, `{"query":"b"}`).Code)

	rec := post(s, `{"query":"c"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Len(t, runner.queries, 2)

	get := httptest.NewRecorder()
	s.Handler.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, get.Code, "GETs are not rate limited")
}

func TestRateLimitLogsUnderItsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelInfo, Format: "json", Component: log.ComponentHTTP, Output: &buf})
	s := newTestServer(t, &fakeRunner{}, Config{RequestsPerMinute: 1, Logger: logger})

	post(s, `{"query":"a"}`)
	buf.Reset()
	require.Equal(t, http.StatusTooManyRequests, post(s, `{"query":"b"}`).Code)

	var limited map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["msg"] == "Rate limit exceeded" {
			limited = rec
		}
	}
	require.NotNil(t, limited)
	assert.Equal(t, log.ComponentRateLimit, limited[log.FieldComponent])
}

func TestIndexHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, Config{})

	for path, want := range map[string]string{
		"/":        "finbot is running",
		"/healthz": "ok",
		"/readyz":  "ready",
	} {
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, want, rec.Body.String(), path)
	}

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReadyzReportsCheckFailure(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, Config{
		Ready: func(context.Context) error { return errors.New("spreadsheet unreachable") },
	})

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", rec.Body.String())
}

func TestShutdownIsIdempotent(t *testing.T) {
	s := newTestServer(t, &fakeRunner{}, Config{})

	require.NoError(t, s.Shutdown(context.Background()))
	assert.NoError(t, s.Shutdown(context.Background()))
}
