package llm

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"champ-ai/internal/domain"
	"champ-ai/internal/infra/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider(config.CompletionConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "deepseek-chat",
	}, testLogger())
}

func TestChatTextReply(t *testing.T) {
	var gotAuth string
	var gotReq openaiRequest

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{
				Message:      openaiMessage{Role: "assistant", Content: "你好呀"},
				FinishReason: "stop",
			}},
			Usage: openaiUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	})

	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "你好"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "deepseek-chat", gotReq.Model, "provider default model fills the request")
	assert.Equal(t, "你好呀", resp.Message.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestChatToolCallsRoundTrip(t *testing.T) {
	var gotReq openaiRequest

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{
				Message: openaiMessage{
					Role: "assistant",
					ToolCalls: []openaiToolCall{{
						ID:   "call_1",
						Type: "function",
						Function: openaiToolCallFunction{
							Name:      "log_mood",
							Arguments: `{"mood":"happy","intensity":2}`,
						},
					}},
				},
				FinishReason: "tool_calls",
			}},
		})
	})

	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "我好开心"},
			{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "prev", Name: "save_memory", Arguments: json.RawMessage(`{}`)}}},
			{Role: domain.RoleTool, ToolCallID: "prev", Name: "save_memory", Content: `{"success":true,"message":"ok"}`},
		},
		Tools: []domain.ToolSchema{{Name: "log_mood", Parameters: json.RawMessage(`{"type":"object"}`)}},
	})
	require.NoError(t, err)

	// Outbound: tool message carries tool_call_id, tool calls carry type function.
	require.Len(t, gotReq.Messages, 3)
	assert.Equal(t, "prev", gotReq.Messages[2].ToolCallID)
	require.Len(t, gotReq.Messages[1].ToolCalls, 1)
	assert.Equal(t, "function", gotReq.Messages[1].ToolCalls[0].Type)
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, "function", gotReq.Tools[0].Type)

	// Inbound: arguments arrive as a raw JSON string.
	require.Len(t, resp.Message.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.Message.ToolCalls[0].ID)
	assert.Equal(t, "log_mood", resp.Message.ToolCalls[0].Name)
	assert.JSONEq(t, `{"mood":"happy","intensity":2}`, string(resp.Message.ToolCalls[0].Arguments))
}

func TestChatHTTPErrorWrapped(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	})

	_, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCompletionFailed)
}

func TestChatEmptyChoices(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaiResponse{})
	})

	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Message.Content)
	assert.Empty(t, resp.Message.ToolCalls)
}
