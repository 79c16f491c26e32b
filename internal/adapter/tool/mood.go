package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/trace"

	"champ-ai/internal/domain"
)

// LogMoodTool records the user's current mood in the journal.
// A best-effort memory note is written alongside so later retrieval can
// surface how the user felt that day; its failure never blocks the reply.
type LogMoodTool struct {
	moods    domain.MoodStore
	memories domain.MemoryStore
	bus      domain.EventBus
	logger   *slog.Logger
}

// NewLogMoodTool creates the log_mood tool. memories and bus may be nil.
func NewLogMoodTool(moods domain.MoodStore, memories domain.MemoryStore, bus domain.EventBus, logger *slog.Logger) *LogMoodTool {
	return &LogMoodTool{moods: moods, memories: memories, bus: bus, logger: logger}
}

func (t *LogMoodTool) Name() string { return "log_mood" }

func (t *LogMoodTool) Description() string {
	return "记录用户当前的心情、情绪状态。当用户明确表达某种心情（如开心、难过、生气等）时调用。"
}

func (t *LogMoodTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"mood": {
					"type": "string",
					"enum": ["happy", "blissful", "tired", "annoyed", "angry", "depressed"],
					"description": "心情类别: happy(开心), blissful(幸福), tired(累), annoyed(烦躁), angry(生气), depressed(沮丧)"
				},
				"intensity": {
					"type": "number",
					"description": "心情强度，1-3。1=一点点，2=中度，3=超级。",
					"minimum": 1,
					"maximum": 3
				},
				"note": {
					"type": "string",
					"description": "关于心情的简短备注或原因"
				}
			},
			"required": ["mood", "intensity"]
		}`),
	}
}

type logMoodParams struct {
	Mood      string  `json:"mood"`
	Intensity float64 `json:"intensity"`
	Note      string  `json:"note"`
}

func (t *LogMoodTool) Execute(ctx context.Context, rawParams json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.log_mood", t.logger, rawParams,
		func(ctx context.Context, span trace.Span, p logMoodParams) (any, error) {
			if !slices.Contains(domain.Moods, p.Mood) {
				return ErrResult("unknown mood %q", p.Mood)
			}
			intensity := int(p.Intensity)
			if intensity < 1 || intensity > 3 {
				return ErrResult("intensity must be between 1 and 3")
			}

			entry := domain.MoodEntry{
				Mood:      p.Mood,
				Intensity: intensity,
				Note:      p.Note,
				CreatedAt: time.Now().UTC(),
			}
			if err := t.moods.Save(ctx, entry); err != nil {
				return nil, err
			}

			t.logger.Info("mood logged", "mood", p.Mood, "intensity", intensity)
			t.publish(ctx, entry)
			t.noteMemory(entry)

			return TextResult("心情已记录。"), nil
		})
}

func (t *LogMoodTool) publish(ctx context.Context, entry domain.MoodEntry) {
	if t.bus == nil {
		return
	}
	t.bus.Publish(ctx, domain.Event{
		Type:      domain.EventMoodLogged,
		Timestamp: time.Now(),
		Payload:   map[string]any{"mood": entry.Mood, "intensity": entry.Intensity},
	})
}

// noteMemory writes a mood note into the memory store. Best effort,
// non-blocking, failure is logged only.
func (t *LogMoodTool) noteMemory(entry domain.MoodEntry) {
	if t.memories == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.logger.Error("mood memory write panicked", "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		content := fmt.Sprintf("心情记录：%s（强度 %d）", entry.Mood, entry.Intensity)
		if entry.Note != "" {
			content += "，备注：" + entry.Note
		}
		err := t.memories.Store(ctx, domain.MemoryEntry{
			Content:   content,
			Type:      domain.MemoryTypeMood,
			Author:    "piggy",
			CreatedAt: entry.CreatedAt,
		})
		if err != nil {
			t.logger.Warn("mood memory write failed", "error", err)
		}
	}()
}
