package tool

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"champ-ai/internal/adapter/weather"
	"champ-ai/internal/domain"
)

// WeatherService is the weather client boundary, narrowed for testing.
type WeatherService interface {
	Current(ctx context.Context, city string) (*weather.Report, error)
}

// GetWeatherTool fetches current weather for a city through a two-step
// geocode + forecast call.
type GetWeatherTool struct {
	service WeatherService
	logger  *slog.Logger
}

// NewGetWeatherTool creates the get_weather tool.
func NewGetWeatherTool(service WeatherService, logger *slog.Logger) *GetWeatherTool {
	return &GetWeatherTool{service: service, logger: logger}
}

func (t *GetWeatherTool) Name() string { return "get_weather" }

func (t *GetWeatherTool) Description() string {
	return "查询指定城市的当前天气。当用户询问天气、温度、是否下雨等问题时调用。"
}

func (t *GetWeatherTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"city": {
					"type": "string",
					"description": "城市名称，例如：北京、上海"
				}
			},
			"required": ["city"]
		}`),
	}
}

type getWeatherParams struct {
	City string `json:"city"`
}

func (t *GetWeatherTool) Execute(ctx context.Context, rawParams json.RawMessage) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.get_weather", t.logger, rawParams,
		func(ctx context.Context, span trace.Span, p getWeatherParams) (any, error) {
			if p.City == "" {
				return ErrResult("city is required")
			}
			span.SetAttributes(attribute.String("weather.city", p.City))

			report, err := t.service.Current(ctx, p.City)
			if err != nil {
				return nil, err
			}
			return report, nil
		})
}
