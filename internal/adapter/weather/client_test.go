package weather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"champ-ai/internal/domain"
	"champ-ai/internal/infra/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.WeatherConfig{
		APIBase:    srv.URL,
		GeoBase:    srv.URL,
		ProjectID:  "proj",
		KeyID:      "key",
		PrivateKey: testSeed(),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestCurrentHappyPath(t *testing.T) {
	var gotAuth []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		switch {
		case strings.HasPrefix(r.URL.Path, "/v2/city/lookup"):
			assert.Equal(t, "上海", r.URL.Query().Get("location"))
			fmt.Fprint(w, `{"code":"200","location":[{"id":"101020100","name":"上海","adm1":"上海市"}]}`)
		case strings.HasPrefix(r.URL.Path, "/v7/weather/now"):
			assert.Equal(t, "101020100", r.URL.Query().Get("location"))
			fmt.Fprint(w, `{"code":"200","now":{"obsTime":"2026-03-14T12:00+08:00","temp":"18","feelsLike":"17","text":"多云","humidity":"60"}}`)
		default:
			http.NotFound(w, r)
		}
	})

	report, err := client.Current(context.Background(), "上海")
	require.NoError(t, err)
	assert.Equal(t, "上海", report.City)
	assert.Equal(t, "多云", report.Text)
	assert.Equal(t, "18°C", report.Temp)
	assert.Equal(t, "17°C", report.FeelsLike)
	assert.Equal(t, "60%", report.Humidity)

	require.Len(t, gotAuth, 2)
	for _, auth := range gotAuth {
		assert.True(t, strings.HasPrefix(auth, "Bearer "))
	}
}

func TestCurrentCityNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"code":"404","location":[]}`)
	})

	_, err := client.Current(context.Background(), "不存在的城市")
	assert.ErrorIs(t, err, domain.ErrCityNotFound)
}

func TestCurrentUpstreamErrorCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/v2/city/lookup"):
			fmt.Fprint(w, `{"code":"200","location":[{"id":"1","name":"上海"}]}`)
		default:
			fmt.Fprint(w, `{"code":"500"}`)
		}
	})

	_, err := client.Current(context.Background(), "上海")
	assert.ErrorIs(t, err, domain.ErrWeatherUnavailable)
}

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	for i := 0; i < 5; i++ {
		_, err := client.Current(context.Background(), "上海")
		require.Error(t, err)
	}

	_, err := client.Current(context.Background(), "上海")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}
