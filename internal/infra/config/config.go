package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"champ-ai/internal/domain"
)

// Config is the root configuration for the service.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Completion CompletionConfig `yaml:"completion"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Context    ContextConfig    `yaml:"context"`
	Agent      AgentConfig      `yaml:"agent"`
	Memory     MemoryConfig     `yaml:"memory"`
	Storage    StorageConfig    `yaml:"storage"`
	Weather    WeatherConfig    `yaml:"weather"`
	Reminder   ReminderConfig   `yaml:"reminder"`
	Logger     LoggerConfig     `yaml:"logger"`
	Tracing    TracingConfig    `yaml:"tracing"`
}

// ServerConfig configures the inbound HTTP API.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	RequestsPerMin int    `yaml:"requests_per_min"`
	BurstSize      int    `yaml:"burst_size"`
}

// CompletionConfig configures the chat completion provider.
type CompletionConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
}

// ClassifierConfig configures the query classifier.
type ClassifierConfig struct {
	ModelAssisted bool          `yaml:"model_assisted"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
}

// ContextConfig configures context assembly.
type ContextConfig struct {
	Timezone     string `yaml:"timezone"`
	MemoryTopK   int    `yaml:"memory_top_k"`
	MixedTopK    int    `yaml:"mixed_top_k"`
	HistoryLimit int    `yaml:"history_limit"`
	TokenBudget  int    `yaml:"token_budget"`
}

// AgentConfig configures the orchestration loop.
type AgentConfig struct {
	MaxIterations int    `yaml:"max_iterations"`
	SystemPrompt  string `yaml:"system_prompt"` // empty means the built-in persona
}

// MemoryConfig configures the vector memory store.
type MemoryConfig struct {
	Path            string        `yaml:"path"`
	EmbeddingURL    string        `yaml:"embedding_url"`
	EmbeddingAPIKey string        `yaml:"embedding_api_key"`
	EmbeddingModel  string        `yaml:"embedding_model"`
	Dimensions      int           `yaml:"dimensions"`
	Timeout         time.Duration `yaml:"timeout"`
	Passphrase      string        `yaml:"passphrase"` // empty disables at-rest encryption
}

// StorageConfig configures the journal database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// WeatherConfig configures the weather tool's external API.
type WeatherConfig struct {
	APIBase    string        `yaml:"api_base"`
	GeoBase    string        `yaml:"geo_base"`
	ProjectID  string        `yaml:"project_id"`
	KeyID      string        `yaml:"key_id"`
	PrivateKey string        `yaml:"private_key"` // base64 ed25519 seed
	Timeout    time.Duration `yaml:"timeout"`
}

// Enabled reports whether the weather tool can be wired.
func (w WeatherConfig) Enabled() bool {
	return w.ProjectID != "" && w.KeyID != "" && w.PrivateKey != ""
}

// ReminderConfig configures the period reminder job.
type ReminderConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Schedule     string `yaml:"schedule"`
	CycleDays    int    `yaml:"cycle_days"`
	CooldownDays int    `yaml:"cooldown_days"`
}

// LoggerConfig configures slog output.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout or noop
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			RequestsPerMin: 100,
			BurstSize:      20,
		},
		Completion: CompletionConfig{
			BaseURL:     "https://api.deepseek.com",
			Model:       "deepseek-chat",
			Timeout:     60 * time.Second,
			MaxTokens:   2048,
			Temperature: 0.7,
		},
		Classifier: ClassifierConfig{
			ModelAssisted: false,
			Model:         "deepseek-chat",
			Timeout:       5 * time.Second,
		},
		Context: ContextConfig{
			Timezone:     "Asia/Shanghai",
			MemoryTopK:   6,
			MixedTopK:    4,
			HistoryLimit: 50,
			TokenBudget:  8000,
		},
		Agent: AgentConfig{
			MaxIterations: 5,
		},
		Memory: MemoryConfig{
			Path:           "data/memories.db",
			EmbeddingURL:   "https://api.openai.com/v1",
			EmbeddingModel: "text-embedding-3-small",
			Dimensions:     1536,
			Timeout:        30 * time.Second,
		},
		Storage: StorageConfig{
			Path: "data/journal.db",
		},
		Weather: WeatherConfig{
			APIBase: "https://devapi.qweather.com",
			GeoBase: "https://geoapi.qweather.com",
			Timeout: 10 * time.Second,
		},
		Reminder: ReminderConfig{
			Enabled:      true,
			Schedule:     "0 9 * * *",
			CycleDays:    28,
			CooldownDays: 20,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads configuration from an optional YAML file, then applies
// CHAMPAI_* environment overrides, then validates.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, domain.WrapOp("config.Load", fmt.Errorf("%w: %v", domain.ErrConfigLoad, err))
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, domain.WrapOp("config.Load", fmt.Errorf("%w: parse yaml: %v", domain.ErrConfigLoad, err))
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as runtime faults.
func (c Config) Validate() error {
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("%w: agent.max_iterations must be >= 1", domain.ErrConfigLoad)
	}
	if c.Context.MixedTopK > c.Context.MemoryTopK {
		return fmt.Errorf("%w: context.mixed_top_k must not exceed context.memory_top_k", domain.ErrConfigLoad)
	}
	if c.Context.MemoryTopK < 0 || c.Context.MixedTopK < 0 {
		return fmt.Errorf("%w: context top-k values must be non-negative", domain.ErrConfigLoad)
	}
	if _, err := loadLocation(c.Context.Timezone); err != nil {
		return fmt.Errorf("%w: context.timezone: %v", domain.ErrConfigLoad, err)
	}
	if c.Server.RequestsPerMin <= 0 || c.Server.BurstSize <= 0 {
		return fmt.Errorf("%w: server rate limit values must be positive", domain.ErrConfigLoad)
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// applyEnvOverrides maps CHAMPAI_* variables onto the config. Only the
// operationally relevant knobs are exposed; everything else is YAML-only.
func applyEnvOverrides(cfg *Config) {
	setStr := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	setStr("CHAMPAI_SERVER_ADDR", &cfg.Server.Addr)
	setStr("CHAMPAI_COMPLETION_BASE_URL", &cfg.Completion.BaseURL)
	setStr("CHAMPAI_COMPLETION_API_KEY", &cfg.Completion.APIKey)
	setStr("CHAMPAI_COMPLETION_MODEL", &cfg.Completion.Model)
	setBool("CHAMPAI_CLASSIFIER_MODEL_ASSISTED", &cfg.Classifier.ModelAssisted)
	setInt("CHAMPAI_AGENT_MAX_ITERATIONS", &cfg.Agent.MaxIterations)
	setStr("CHAMPAI_MEMORY_PATH", &cfg.Memory.Path)
	setStr("CHAMPAI_MEMORY_EMBEDDING_API_KEY", &cfg.Memory.EmbeddingAPIKey)
	setStr("CHAMPAI_MEMORY_PASSPHRASE", &cfg.Memory.Passphrase)
	setStr("CHAMPAI_STORAGE_PATH", &cfg.Storage.Path)
	setStr("CHAMPAI_WEATHER_PROJECT_ID", &cfg.Weather.ProjectID)
	setStr("CHAMPAI_WEATHER_KEY_ID", &cfg.Weather.KeyID)
	setStr("CHAMPAI_WEATHER_PRIVATE_KEY", &cfg.Weather.PrivateKey)
	setBool("CHAMPAI_REMINDER_ENABLED", &cfg.Reminder.Enabled)
	setStr("CHAMPAI_LOGGER_LEVEL", &cfg.Logger.Level)
	setStr("CHAMPAI_LOGGER_FORMAT", &cfg.Logger.Format)
	setBool("CHAMPAI_TRACING_ENABLED", &cfg.Tracing.Enabled)
}
