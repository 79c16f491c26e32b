package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"champ-ai/internal/domain"
)

// TrackPeriodTool records the start of a cycle.
type TrackPeriodTool struct {
	periods domain.PeriodStore
	bus     domain.EventBus
	logger  *slog.Logger
}

// NewTrackPeriodTool creates the track_period tool. bus may be nil.
func NewTrackPeriodTool(periods domain.PeriodStore, bus domain.EventBus, logger *slog.Logger) *TrackPeriodTool {
	return &TrackPeriodTool{periods: periods, bus: bus, logger: logger}
}

func (t *TrackPeriodTool) Name() string { return "track_period" }

func (t *TrackPeriodTool) Description() string {
	return "记录用户生理期（大姨妈）开始。当用户提到大姨妈来了、肚子痛等生理期相关话题时调用。"
}

func (t *TrackPeriodTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"startDate": {
					"type": "string",
					"description": "生理期开始日期，格式 YYYY-MM-DD，默认为今天"
				}
			}
		}`),
	}
}

type trackPeriodParams struct {
	StartDate string `json:"startDate"`
}

func (t *TrackPeriodTool) Execute(ctx context.Context, rawParams json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.track_period", t.logger, rawParams,
		func(ctx context.Context, span trace.Span, p trackPeriodParams) (any, error) {
			start := time.Now().UTC()
			if p.StartDate != "" {
				parsed, err := time.Parse("2006-01-02", p.StartDate)
				if err != nil {
					return ErrResult("startDate must be YYYY-MM-DD, got %q", p.StartDate)
				}
				start = parsed
			}

			rec := domain.PeriodRecord{StartDate: start}
			if err := t.periods.Save(ctx, rec); err != nil {
				return nil, err
			}

			t.logger.Info("period tracked", "start", start.Format("2006-01-02"))
			if t.bus != nil {
				t.bus.Publish(ctx, domain.Event{
					Type:      domain.EventPeriodTracked,
					Timestamp: time.Now(),
					Payload:   map[string]any{"start_date": start.Format("2006-01-02")},
				})
			}

			return TextResult("经期已记录。"), nil
		})
}
