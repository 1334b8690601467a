package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-diary-bot/internal/config"
	"github.com/tbourn/go-diary-bot/internal/extract"
	"github.com/tbourn/go-diary-bot/internal/llm"
	"github.com/tbourn/go-diary-bot/internal/nlp"
	"github.com/tbourn/go-diary-bot/internal/queue"
	"github.com/tbourn/go-diary-bot/internal/repo"
	"github.com/tbourn/go-diary-bot/internal/services"
	"github.com/tbourn/go-diary-bot/internal/worker"
)

// app holds the process-wide dependencies shared by the commands.
type app struct {
	cfg   config.Config
	db    *gorm.DB
	rdb   *goredis.Client
	store *queue.Store
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.Open(cfg.DB.Driver, cfg.DB.Path, cfg.DB.URL)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DB.Driver, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := repo.SeedPrompts(db); err != nil {
		return nil, fmt.Errorf("seed prompts: %w", err)
	}
	return db, nil
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	rdb, err := queue.Connect(ctx, queue.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		closeDB(db)
		return nil, err
	}
	return &app{
		cfg:   cfg,
		db:    db,
		rdb:   rdb,
		store: queue.NewStore(rdb, cfg.Redis.DebounceTTL, cfg.Redis.QuestionsTTL),
	}, nil
}

func (a *app) Close() {
	if err := a.rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close")
	}
	closeDB(a.db)
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// newAnalyzer prefers the remote tagger and falls back to the lexicon. The
// lexicon is hot-reloaded when a file path is configured with watching on.
func newAnalyzer(ctx context.Context, cfg config.NLPConfig, timeout time.Duration) (nlp.Analyzer, error) {
	if cfg.TaggerURL != "" {
		log.Info().Str("url", cfg.TaggerURL).Msg("nlp: using remote tagger")
		return nlp.NewHTTPAnalyzer(cfg.TaggerURL, timeout), nil
	}
	a, err := nlp.NewLexiconAnalyzer(cfg.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}
	log.Info().Int("forms", a.Size()).Str("path", cfg.LexiconPath).Msg("nlp: lexicon loaded")
	if cfg.LexiconWatch && cfg.LexiconPath != "" {
		go func() {
			if err := a.Watch(ctx, cfg.LexiconPath); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("nlp: lexicon watcher stopped")
			}
		}()
	}
	return a, nil
}

func newCompleter(cfg config.LLMConfig) llm.Completer {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		log.Warn().Msg("llm: OPENAI_API_KEY unset, topic inference will fail for unknown keywords")
	}
	return llm.NewOpenAIClient(llm.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: float32(cfg.Temperature),
		Timeout:     cfg.Timeout,
		RPS:         cfg.RPS,
	})
}

func newNotifier(cfg config.Config) worker.Notifier {
	if cfg.NotifyWebhookURL == "" {
		return worker.LogNotifier{}
	}
	return worker.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.LLM.Timeout)
}

// newSupervisor wires the enrichment pipeline behind the expiry listener.
func (a *app) newSupervisor(ctx context.Context) (*worker.Supervisor, error) {
	cfg := a.cfg
	if cfg.Redis.ConfigureNotify {
		if err := queue.EnableExpiryNotifications(ctx, a.rdb); err != nil {
			log.Warn().Err(err).Msg("redis: could not enable expiry notifications; expecting server-side config")
		}
	}

	analyzer, err := newAnalyzer(ctx, cfg.NLP, cfg.LLM.Timeout)
	if err != nil {
		return nil, err
	}
	topics := services.NewTopicResolver(newCompleter(cfg.LLM))
	topics.NoneSentinel = cfg.LLM.NoneSentinel

	pipeline := &services.Pipeline{
		DB:           a.db,
		Extractor:    extract.New(analyzer),
		Requirements: services.NewRequirementResolver(),
		Topics:       topics,
		Questions:    a.store,
	}
	return &worker.Supervisor{
		Listener: queue.NewListener(a.rdb, cfg.Redis.DB),
		Coordinator: &worker.Coordinator{
			Queue:       a.store,
			Pipeline:    pipeline,
			Notifier:    newNotifier(cfg),
			Concurrency: cfg.Worker.Concurrency,
		},
		MaxBackoff: cfg.Worker.RestartMaxBackoff,
	}, nil
}
