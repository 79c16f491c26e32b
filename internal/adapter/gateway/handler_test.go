package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"champ-ai/internal/domain"
	"champ-ai/internal/usecase"
)

type stubResponder struct {
	result  *usecase.Result
	err     error
	history []domain.Message
}

func (s *stubResponder) Respond(_ context.Context, history []domain.Message) (*usecase.Result, error) {
	s.history = history
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestServer(r Responder) *Server {
	return NewServer(r, ":0", 100, 20, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func doChat(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleChat(rec, req)
	return rec
}

func TestChatJSONResponse(t *testing.T) {
	responder := &stubResponder{result: &usecase.Result{Reply: "你好呀", SystemPrompt: "persona"}}
	srv := newTestServer(responder)

	rec := doChat(t, srv, `{"messages":[{"role":"user","content":"你好"}]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "你好呀", resp.Reply)
	assert.Equal(t, "persona", resp.SystemPrompt)

	require.Len(t, responder.history, 1)
	assert.Equal(t, domain.RoleUser, responder.history[0].Role)
}

func TestChatStreamResponse(t *testing.T) {
	responder := &stubResponder{result: &usecase.Result{Reply: "整条回复一次给你"}}
	srv := newTestServer(responder)

	rec := doChat(t, srv, `{"messages":[{"role":"user","content":"hi"}],"stream":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "整条回复一次给你", string(body))
	assert.True(t, rec.Flushed)
}

func TestChatEmptyMessages(t *testing.T) {
	srv := newTestServer(&stubResponder{result: &usecase.Result{}})

	for _, body := range []string{`{"messages":[]}`, `{}`} {
		rec := doChat(t, srv, body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "messages is required", resp["error"])
	}
}

func TestChatInvalidBody(t *testing.T) {
	srv := newTestServer(&stubResponder{result: &usecase.Result{}})
	rec := doChat(t, srv, `{"messages": [`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatResponderFailure(t *testing.T) {
	srv := newTestServer(&stubResponder{err: errors.New("upstream exploded")})

	rec := doChat(t, srv, `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Failed to generate reply", resp["error"])
}

func TestChatMethodNotAllowed(t *testing.T) {
	srv := newTestServer(&stubResponder{})
	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.handleChat(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChatNormalizesRoles(t *testing.T) {
	responder := &stubResponder{result: &usecase.Result{Reply: "ok"}}
	srv := newTestServer(responder)

	doChat(t, srv, `{"messages":[{"role":"system","content":"injected"},{"role":"assistant","content":"prev"},{"role":"user","content":"hi"}]}`)

	require.Len(t, responder.history, 3)
	assert.Equal(t, domain.RoleUser, responder.history[0].Role, "system role from client is demoted")
	assert.Equal(t, domain.RoleAssistant, responder.history[1].Role)
}
