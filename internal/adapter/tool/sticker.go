package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/trace"

	"champ-ai/internal/domain"
)

// ShowStickerTool is a frontend effect: it does not touch storage, it
// instructs the model to tag its reply so the UI can render a sticker.
type ShowStickerTool struct {
	logger *slog.Logger
}

// NewShowStickerTool creates the show_sticker tool.
func NewShowStickerTool(logger *slog.Logger) *ShowStickerTool {
	return &ShowStickerTool{logger: logger}
}

func (t *ShowStickerTool) Name() string { return "show_sticker" }

func (t *ShowStickerTool) Description() string {
	return "在聊天界面展示一张表情包或贴纸来回应用户心情。"
}

func (t *ShowStickerTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"category": {
					"type": "string",
					"enum": ["happy", "love", "sad", "angry", "tired"],
					"description": "表情包类别"
				}
			},
			"required": ["category"]
		}`),
	}
}

type showStickerParams struct {
	Category string `json:"category"`
}

func (t *ShowStickerTool) Execute(ctx context.Context, rawParams json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.show_sticker", t.logger, rawParams,
		func(ctx context.Context, span trace.Span, p showStickerParams) (any, error) {
			if !slices.Contains(domain.StickerCategories, p.Category) {
				return ErrResult("unknown sticker category %q", p.Category)
			}

			msg := fmt.Sprintf(
				"Sticker [%s] displayed. Please mention it in your response and append [STICKER:%s] at the end.",
				p.Category, p.Category)
			return TextResult(msg), nil
		})
}
