package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"champ-ai/internal/domain"
	"champ-ai/internal/infra/config"
)

// Report is the condensed current-weather answer fed back to the model.
type Report struct {
	City      string `json:"city"`
	Text      string `json:"text"`
	Temp      string `json:"temp"`
	FeelsLike string `json:"feels_like"`
	Humidity  string `json:"humidity"`
	ObsTime   string `json:"obs_time"`
}

// Client fetches current weather via a two-step call: geocode lookup to
// resolve the city to a location ID, then the forecast fetch. Both run
// under a shared circuit breaker so a flapping upstream fails fast.
type Client struct {
	apiBase string
	geoBase string
	client  *http.Client
	tokens  *TokenSource
	breaker *gobreaker.CircuitBreaker[*Report]
	logger  *slog.Logger
}

// NewClient creates a weather client from config.
func NewClient(cfg config.WeatherConfig, logger *slog.Logger) (*Client, error) {
	tokens, err := NewTokenSource(cfg.KeyID, cfg.ProjectID, cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("weather token source: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*Report](gobreaker.Settings{
		Name:        "weather",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		geoBase: strings.TrimRight(cfg.GeoBase, "/"),
		client:  &http.Client{Timeout: timeout},
		tokens:  tokens,
		breaker: cb,
		logger:  logger,
	}, nil
}

// Current resolves city and returns its current weather.
func (c *Client) Current(ctx context.Context, city string) (*Report, error) {
	report, err := c.breaker.Execute(func() (*Report, error) {
		return c.current(ctx, city)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open", domain.ErrWeatherUnavailable)
		}
		return nil, err
	}
	return report, nil
}

func (c *Client) current(ctx context.Context, city string) (*Report, error) {
	loc, err := c.lookup(ctx, city)
	if err != nil {
		return nil, err
	}

	now, err := c.observe(ctx, loc.ID)
	if err != nil {
		return nil, err
	}

	return &Report{
		City:      loc.Name,
		Text:      now.Text,
		Temp:      now.Temp + "°C",
		FeelsLike: now.FeelsLike + "°C",
		Humidity:  now.Humidity + "%",
		ObsTime:   now.ObsTime,
	}, nil
}

// --- geocode lookup ---

type geoResponse struct {
	Code     string        `json:"code"`
	Location []geoLocation `json:"location"`
}

type geoLocation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Adm1 string `json:"adm1"`
}

func (c *Client) lookup(ctx context.Context, city string) (*geoLocation, error) {
	u := c.geoBase + "/v2/city/lookup?location=" + url.QueryEscape(city)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp geoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal geo response: %v", domain.ErrWeatherUnavailable, err)
	}
	if resp.Code != "200" || len(resp.Location) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrCityNotFound, city)
	}
	return &resp.Location[0], nil
}

// --- current conditions ---

type nowResponse struct {
	Code string `json:"code"`
	Now  nowData `json:"now"`
}

type nowData struct {
	ObsTime   string `json:"obsTime"`
	Temp      string `json:"temp"`
	FeelsLike string `json:"feelsLike"`
	Text      string `json:"text"`
	Humidity  string `json:"humidity"`
}

func (c *Client) observe(ctx context.Context, locationID string) (*nowData, error) {
	u := c.apiBase + "/v7/weather/now?location=" + url.QueryEscape(locationID)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp nowResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshal weather response: %v", domain.ErrWeatherUnavailable, err)
	}
	if resp.Code != "200" {
		return nil, fmt.Errorf("%w: API code %s", domain.ErrWeatherUnavailable, resp.Code)
	}
	return &resp.Now, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: token: %v", domain.ErrWeatherUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", domain.ErrWeatherUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", domain.ErrWeatherUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrWeatherUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API error %d: %s", domain.ErrWeatherUnavailable, resp.StatusCode, string(body))
	}
	return body, nil
}
