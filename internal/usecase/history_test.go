package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"champ-ai/internal/domain"
)

func TestTruncateHistoryUnderLimit(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleUser, Content: "a"},
		{Role: domain.RoleAssistant, Content: "b"},
	}
	got := truncateHistory(history, 10, 0, testLogger())
	assert.Equal(t, history, got)
}

func TestTruncateHistoryDropsOldest(t *testing.T) {
	var history []domain.Message
	for i := 0; i < 10; i++ {
		history = append(history, domain.Message{Role: domain.RoleUser, Content: fmt.Sprintf("msg-%d", i)})
	}

	got := truncateHistory(history, 4, 0, testLogger())
	require.Len(t, got, 4)
	assert.Equal(t, "msg-6", got[0].Content)
	assert.Equal(t, "msg-9", got[3].Content)
}

func TestTruncateHistoryKeepsToolGroupsAtomic(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleUser, Content: "old"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "c1", Name: "log_mood"}}},
		{Role: domain.RoleTool, ToolCallID: "c1", Content: `{"success":true,"message":"ok"}`},
		{Role: domain.RoleAssistant, Content: "done"},
		{Role: domain.RoleUser, Content: "new"},
	}

	// Limit 3 cannot fit the 2-message tool group plus the two newest
	// singles, so the group is dropped whole.
	got := truncateHistory(history, 3, 0, testLogger())
	require.Len(t, got, 2)
	assert.Equal(t, "done", got[0].Content)
	assert.Equal(t, "new", got[1].Content)

	for _, m := range got {
		assert.NotEqual(t, domain.RoleTool, m.Role)
	}
}

func TestTruncateHistoryNeverEmpty(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "c1"}}},
		{Role: domain.RoleTool, ToolCallID: "c1", Content: "{}"},
	}
	got := truncateHistory(history, 1, 0, testLogger())
	require.Len(t, got, 1)
	assert.Equal(t, domain.RoleTool, got[0].Role)
}

func TestGroupMessages(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleUser, Content: "q"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{{ID: "c1"}, {ID: "c2"}}},
		{Role: domain.RoleTool, ToolCallID: "c1"},
		{Role: domain.RoleTool, ToolCallID: "c2"},
		{Role: domain.RoleAssistant, Content: "a"},
	}

	groups := groupMessages(history)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 1)
	assert.Len(t, groups[1], 3)
	assert.Len(t, groups[2], 1)
}
