package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"champ-ai/internal/domain"
)

// memoryAuthor is the attributed author for chat-originated memories.
const memoryAuthor = "piggy"

// SaveMemoryTool stores a memory the user asked to remember.
type SaveMemoryTool struct {
	memories domain.MemoryStore
	bus      domain.EventBus
	logger   *slog.Logger
}

// NewSaveMemoryTool creates the save_memory tool. bus may be nil.
func NewSaveMemoryTool(memories domain.MemoryStore, bus domain.EventBus, logger *slog.Logger) *SaveMemoryTool {
	return &SaveMemoryTool{memories: memories, bus: bus, logger: logger}
}

func (t *SaveMemoryTool) Name() string { return "save_memory" }

func (t *SaveMemoryTool) Description() string {
	return "保存重要的信息或用户明确要求记住的事情。比如未来的计划、重要的日期、或者用户的喜好等。"
}

func (t *SaveMemoryTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"content": {
					"type": "string",
					"description": "需要记住的具体内容"
				}
			},
			"required": ["content"]
		}`),
	}
}

type saveMemoryParams struct {
	Content string `json:"content"`
}

func (t *SaveMemoryTool) Execute(ctx context.Context, rawParams json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.save_memory", t.logger, rawParams,
		func(ctx context.Context, span trace.Span, p saveMemoryParams) (any, error) {
			if p.Content == "" {
				return ErrResult("Content is required.")
			}

			entry := domain.MemoryEntry{
				Content:   "聊天提醒：" + p.Content,
				Type:      domain.MemoryTypeNote,
				Author:    memoryAuthor,
				CreatedAt: time.Now().UTC(),
			}
			if err := t.memories.Store(ctx, entry); err != nil {
				return nil, err
			}

			t.logger.Info("memory saved", "chars", len(p.Content))
			if t.bus != nil {
				t.bus.Publish(ctx, domain.Event{
					Type:      domain.EventMemorySaved,
					Timestamp: time.Now(),
					Payload:   map[string]any{"type": entry.Type},
				})
			}

			return TextResult("记忆已保存。"), nil
		})
}
