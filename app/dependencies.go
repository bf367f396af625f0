package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/insight-rag/config"
	"github.com/upb/insight-rag/internal/redact"
	"github.com/upb/insight-rag/repositories/postgres"
	"github.com/upb/insight-rag/services/backfill"
	"github.com/upb/insight-rag/services/embedder"
	"github.com/upb/insight-rag/services/pipeline"
	"github.com/upb/insight-rag/services/providers"
	"github.com/upb/insight-rag/services/providers/openai"
	"github.com/upb/insight-rag/services/retriever"
	"github.com/upb/insight-rag/services/synthesizer"
)

const (
	// ServiceName is reported by the status and health endpoints
	ServiceName = "insight-rag"

	// Version is reported by the health endpoint
	Version = "1.0.0"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Pipeline stages
	Embedder         *embedder.Client
	ProviderRegistry *providers.Registry
	Prompts          *synthesizer.PromptStore
	Retriever        *retriever.Retriever
	Synthesizer      *synthesizer.Synthesizer
	Pipeline         *pipeline.Orchestrator

	promptWatcher *synthesizer.PromptWatcher
	openStore     retriever.Opener
}

// Option customizes NewDependencies
type Option func(*Dependencies)

// WithStoreOpener replaces the PostgreSQL store opener
func WithStoreOpener(open retriever.Opener) Option {
	return func(d *Dependencies) {
		d.openStore = open
	}
}

// NewDependencies creates and wires up all application dependencies.
// The vector store is not contacted here; call Pipeline.Initialize for that.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}
	deps.openStore = deps.openPostgresStore
	for _, opt := range opts {
		opt(deps)
	}

	deps.initEmbedder(cfg)

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initPrompts(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize prompts: %w", err)
	}

	deps.initPipeline(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initEmbedder(cfg *config.Config) {
	d.Embedder = embedder.New(embedder.Config{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	})
	d.Logger.Info("embedder configured",
		zap.String("model", d.Embedder.Model()),
		zap.Int("dimension", d.Embedder.Dimension()))
}

// initProviders registers the configured chat provider. Without an API key
// the registry stays empty and every synthesis degrades to its fallback.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	d.ProviderRegistry = providers.NewRegistry()

	if cfg.LLM.APIKey == "" {
		d.Logger.Warn("no LLM API key configured, answers will use fallback text")
		return nil
	}

	pc := providers.DefaultProviderConfig()
	pc.Name = cfg.LLM.Provider
	pc.APIKey = cfg.LLM.APIKey
	pc.BaseURL = cfg.LLM.BaseURL
	pc.DefaultModel = cfg.LLM.Model
	pc.Timeout = cfg.LLM.Timeout
	pc.MaxRetries = cfg.LLM.MaxRetries
	pc.RetryDelay = cfg.LLM.RetryDelay

	if err := d.ProviderRegistry.Register(openai.NewAdapter(pc)); err != nil {
		return err
	}

	d.Logger.Info("registered LLM provider",
		zap.String("provider", pc.Name),
		zap.String("model", pc.DefaultModel))
	return nil
}

func (d *Dependencies) initPrompts(ctx context.Context, cfg *config.Config) error {
	prompts := synthesizer.DefaultPrompts()
	if cfg.Prompts.File != "" {
		loaded, err := synthesizer.LoadPrompts(cfg.Prompts.File)
		if err != nil {
			return err
		}
		prompts = loaded
		d.Logger.Info("prompts loaded", zap.String("file", cfg.Prompts.File))
	}
	d.Prompts = synthesizer.NewPromptStore(prompts)

	if cfg.Prompts.File == "" || !cfg.Prompts.Watch {
		return nil
	}

	watcher, err := synthesizer.NewPromptWatcher(cfg.Prompts.File, d.Prompts, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to watch prompts file: %w", err)
	}
	watcher.Start(ctx)
	d.promptWatcher = watcher
	return nil
}

func (d *Dependencies) initPipeline(cfg *config.Config) {
	d.Retriever = retriever.New(d.openStore, cfg.Retrieval.MaxConcurrentSearches, d.Logger)

	var llm synthesizer.Completer
	if provider, err := d.ProviderRegistry.Lookup(cfg.LLM.Provider); err == nil {
		llm = providers.NewCompleter(provider, providers.CompletionOptions{
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	}
	d.Synthesizer = synthesizer.New(llm, d.Prompts, d.Logger)
	if cfg.LLM.RedactPII {
		d.Synthesizer.SetQueryFilter(redact.PII)
	}

	d.Pipeline = pipeline.New(d.Embedder, d.Retriever, d.Synthesizer, cfg.Retrieval.TopK, d.Logger)
}

func (d *Dependencies) openPostgresStore(ctx context.Context) (retriever.Store, error) {
	db, err := postgres.NewDB(ctx, d.Config.Database, d.Logger)
	if err != nil {
		return nil, err
	}
	return postgres.NewInsightRepository(db, d.Logger), nil
}

// NewBackfill opens a dedicated pool and returns a backfill service bound to
// it. The caller closes the returned pool. With initSchema the extension and
// table are created first.
func (d *Dependencies) NewBackfill(ctx context.Context, batchSize int, initSchema bool) (*backfill.Service, *postgres.DB, error) {
	db, err := postgres.NewDB(ctx, d.Config.Database, d.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if initSchema {
		if err := db.InitSchema(ctx, d.Embedder.Dimension()); err != nil {
			db.Close()
			return nil, nil, err
		}
	}

	svc := backfill.NewService(
		postgres.NewInsightRepository(db, d.Logger),
		postgres.NewTransactionManager(db, d.Logger),
		d.Embedder,
		batchSize,
		d.Logger,
	)
	return svc, db, nil
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.promptWatcher != nil {
		if err := d.promptWatcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop prompt watcher: %w", err))
		}
	}

	if d.Pipeline != nil {
		d.Pipeline.Cleanup(ctx)
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
