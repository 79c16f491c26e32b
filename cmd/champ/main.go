// Command champ runs the mood-journal conversation engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"champ-ai/internal/adapter/embedding"
	"champ-ai/internal/adapter/gateway"
	"champ-ai/internal/adapter/llm"
	"champ-ai/internal/adapter/memory/vector"
	"champ-ai/internal/adapter/store"
	"champ-ai/internal/adapter/tool"
	"champ-ai/internal/adapter/weather"
	"champ-ai/internal/domain"
	"champ-ai/internal/infra/config"
	"champ-ai/internal/infra/logger"
	"champ-ai/internal/infra/tracer"
	"champ-ai/internal/security"
	"champ-ai/internal/usecase"
	"champ-ai/internal/usecase/eventbus"
	"champ-ai/internal/usecase/reminder"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "champ:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing setup: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	for _, p := range []string{cfg.Memory.Path, cfg.Storage.Path} {
		if dir := filepath.Dir(p); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("create data dir %s: %w", dir, err)
			}
		}
	}

	var encryptor domain.ContentEncryptor = security.NoopEncryptor{}
	if cfg.Memory.Passphrase != "" {
		enc, err := security.NewAESContentEncryptor(cfg.Memory.Passphrase)
		if err != nil {
			return fmt.Errorf("content encryption: %w", err)
		}
		encryptor = enc
	}

	var embedder domain.EmbeddingProvider
	if cfg.Memory.EmbeddingAPIKey != "" {
		embedder = embedding.NewOpenAIProvider(cfg.Memory.EmbeddingAPIKey,
			embedding.WithBaseURL(cfg.Memory.EmbeddingURL),
			embedding.WithModel(cfg.Memory.EmbeddingModel),
			embedding.WithDimensions(cfg.Memory.Dimensions),
		)
	} else {
		log.Warn("no embedding api key, memory retrieval degrades to text search")
	}

	memories, err := vector.New(cfg.Memory.Path, embedder, encryptor, log)
	if err != nil {
		return fmt.Errorf("open memory store: %w", err)
	}
	defer memories.Close()

	journal, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open journal store: %w", err)
	}
	defer journal.Close()

	bus := eventbus.New(log)
	defer bus.Close()

	provider := llm.NewOpenAIProvider(cfg.Completion, log)

	registry := tool.NewRegistry(log)
	registry.Register(tool.NewLogMoodTool(journal.Moods(), memories, bus, log))
	registry.Register(tool.NewTrackPeriodTool(journal.Periods(), bus, log))
	registry.Register(tool.NewSaveMemoryTool(memories, bus, log))
	registry.Register(tool.NewShowStickerTool(log))
	if cfg.Weather.Enabled() {
		wc, err := weather.NewClient(cfg.Weather, log)
		if err != nil {
			return fmt.Errorf("weather client: %w", err)
		}
		registry.Register(tool.NewGetWeatherTool(wc, log))
	} else {
		log.Info("weather credentials absent, get_weather tool disabled")
	}

	classifier := usecase.NewClassifier(provider, cfg.Classifier.ModelAssisted, cfg.Classifier.Model, cfg.Classifier.Timeout, log)
	assembler := usecase.NewAssembler(memories, cfg.Context.Timezone, cfg.Context.MemoryTopK, cfg.Context.MixedTopK, log)

	orch := usecase.NewOrchestrator(provider, classifier, assembler, registry, bus, usecase.Options{
		Model:         cfg.Completion.Model,
		MaxTokens:     cfg.Completion.MaxTokens,
		Temperature:   cfg.Completion.Temperature,
		MaxIterations: cfg.Agent.MaxIterations,
		SystemPrompt:  cfg.Agent.SystemPrompt,
		HistoryLimit:  cfg.Context.HistoryLimit,
		TokenBudget:   cfg.Context.TokenBudget,
	}, log)

	if cfg.Reminder.Enabled {
		job := reminder.New(journal.Periods(), memories, bus, cfg.Reminder.CycleDays, cfg.Reminder.CooldownDays, log)
		if err := job.Start(cfg.Reminder.Schedule); err != nil {
			return err
		}
		defer job.Stop()
	}

	srv := gateway.NewServer(orch, cfg.Server.Addr, cfg.Server.RequestsPerMin, cfg.Server.BurstSize, log)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	logEvents(bus, log)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// logEvents records engine activity at debug level for operators.
func logEvents(bus domain.EventBus, log *slog.Logger) {
	bus.SubscribeAll(func(_ context.Context, event domain.Event) {
		log.Debug("event", "type", string(event.Type), "payload", event.Payload)
	})
}
