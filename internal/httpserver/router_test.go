package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailhook/internal/entrypoint"
	"mailhook/pkg/trace"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recordingHandler answers with a fixed response and keeps what it saw.
type recordingHandler struct {
	resp    entrypoint.Response
	body    string
	traceID string
}

func (h *recordingHandler) Handle(ctx context.Context, req entrypoint.Request) entrypoint.Response {
	h.body = req.Body
	h.traceID = trace.FromContext(ctx)
	return h.resp
}

func serve(r *Router, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

func TestPostGmail(t *testing.T) {
	h := &recordingHandler{resp: entrypoint.OK()}
	r := NewRouter(h, nil, nil, zap.NewNop())

	w := serve(r, http.MethodPost, "/gmail", `{"historyId":1}`, map[string]string{trace.HeaderName: "trace-9"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `""`, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "trace-9", w.Header().Get(trace.HeaderName))
	assert.Equal(t, `{"historyId":1}`, h.body)
	assert.Equal(t, "trace-9", h.traceID)
}

func TestPostChat_PassesStatusThrough(t *testing.T) {
	chat := &recordingHandler{resp: entrypoint.Forbidden()}
	r := NewRouter(&recordingHandler{resp: entrypoint.OK()}, chat, nil, zap.NewNop())

	w := serve(r, http.MethodPost, "/chat", `{"update_id":1}`, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"Not authorized"}`, w.Body.String())
	assert.NotEmpty(t, chat.traceID)
	assert.NotEmpty(t, w.Header().Get(trace.HeaderName))
}

func TestChatRouteAbsentWithoutHandler(t *testing.T) {
	r := NewRouter(&recordingHandler{resp: entrypoint.OK()}, nil, nil, zap.NewNop())
	w := serve(r, http.MethodPost, "/chat", `{}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreflight(t *testing.T) {
	r := NewRouter(&recordingHandler{}, &recordingHandler{}, nil, zap.NewNop())

	for _, path := range []string{"/gmail", "/chat"} {
		w := serve(r, http.MethodOptions, path, "", nil)
		assert.Equal(t, http.StatusNoContent, w.Code, path)
		assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"), path)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	r := NewRouter(&recordingHandler{}, nil, map[string]ReadinessCheck{"redis": ok}, zap.NewNop())
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/readyz", "", nil).Code)

	r = NewRouter(&recordingHandler{}, nil, map[string]ReadinessCheck{"db": down}, zap.NewNop())
	w := serve(r, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "db_not_ready")
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewRouter(&recordingHandler{resp: entrypoint.OK()}, nil, nil, zap.NewNop())
	serve(r, http.MethodPost, "/gmail", `{}`, nil)

	w := serve(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_request_duration_seconds")
}
