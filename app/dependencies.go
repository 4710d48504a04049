package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/upb/voiceme/config"
	"github.com/upb/voiceme/internal/observability"
	"github.com/upb/voiceme/repositories"
	"github.com/upb/voiceme/repositories/postgres"
	"github.com/upb/voiceme/services/audit"
	"github.com/upb/voiceme/services/interview"
	"github.com/upb/voiceme/services/prompt"
	"github.com/upb/voiceme/services/providers"
	"github.com/upb/voiceme/services/providers/gemini"
	"github.com/upb/voiceme/services/providers/openai"
	"github.com/upb/voiceme/services/routing"
	"go.uber.org/zap"
)

// auditStopTimeout bounds how long Close waits for queued outcomes
const auditStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	Logger  *zap.Logger
	DB      *postgres.DB // nil when no database is configured
	Metrics *observability.Metrics

	// Persistence
	Outcomes repositories.OutcomeRepository
	Audit    *audit.Service

	// Answering pipeline
	Registry     *providers.Registry
	Orchestrator *routing.Orchestrator
	Interview    *interview.Service
}

// Option customizes NewDependencies
type Option func(*options)

type options struct {
	db         *postgres.DB
	httpClient *http.Client
	now        func() time.Time
}

// WithDatabase uses an already opened pool instead of dialing cfg.Database
func WithDatabase(db *postgres.DB) Option {
	return func(o *options) { o.db = db }
}

// WithHTTPClient sets the client every provider adapter uses
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithClock overrides the clock used for prompts and answer timestamps
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Dependencies, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(nil),
	}

	if err := deps.initDatabase(ctx, cfg, o.db); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := deps.initAudit(cfg); err != nil {
		deps.closeDB()
		return nil, fmt.Errorf("failed to initialize audit: %w", err)
	}

	deps.initProviders(cfg, o.httpClient)

	if err := deps.initPipeline(cfg, o.now); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize answering pipeline: %w", err)
	}

	logger.Info("all dependencies initialized successfully",
		zap.Strings("providers", deps.Registry.Names()),
		zap.Bool("database", deps.DB != nil))
	return deps, nil
}

// initDatabase connects to PostgreSQL when configured and prepares the outcome table
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config, db *postgres.DB) error {
	if db == nil {
		if cfg.Database == nil {
			d.Logger.Info("no database configured, outcome audit disabled")
			return nil
		}
		var err error
		db, err = postgres.NewDB(*cfg.Database, d.Logger)
		if err != nil {
			return err
		}
	}

	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return err
	}

	d.DB = db
	d.Outcomes = postgres.NewOutcomeRepository(db, d.Logger)
	return nil
}

func (d *Dependencies) initAudit(cfg *config.Config) error {
	if d.Outcomes == nil {
		return nil
	}

	svc := audit.NewService(d.Outcomes, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	if err := svc.Start(); err != nil {
		return err
	}
	d.Audit = svc
	return nil
}

// initProviders builds the registry in priority order. Providers without
// credentials are skipped with a log line, never fatally.
func (d *Dependencies) initProviders(cfg *config.Config, client *http.Client) {
	builder := providers.NewRegistryBuilder()
	for _, name := range config.KnownProviders {
		pc, _ := cfg.Providers.Get(name)
		builder.WithFactory(name, adapterFactory(name, pc, client))
	}

	registry, skipped := builder.Build(cfg.Providers.Priority)
	for _, s := range skipped {
		d.Logger.Warn("provider not available", zap.String("provider", s.Provider), zap.Error(s.Err))
	}
	if registry.Len() == 0 {
		d.Logger.Warn("no LLM providers configured")
	}

	d.Registry = registry
	d.Metrics.SetConfiguredProviders(registry.Names())
}

func adapterFactory(name string, pc config.ProviderConfig, client *http.Client) providers.AdapterFactory {
	return func() (providers.Adapter, error) {
		if !pc.Configured() {
			return nil, errors.New("api key not set")
		}

		var (
			adapter providers.Adapter
			err     error
		)
		switch name {
		case config.ProviderGemini:
			adapter, err = gemini.New(gemini.Config{APIKey: pc.APIKey, Model: pc.Model, BaseURL: pc.BaseURL, HTTPClient: client})
		case config.ProviderOpenAI:
			adapter, err = openai.New(openai.Config{APIKey: pc.APIKey, Model: pc.Model, BaseURL: pc.BaseURL, HTTPClient: client})
		case config.ProviderGroq:
			adapter, err = openai.NewGroq(openai.Config{APIKey: pc.APIKey, Model: pc.Model, BaseURL: pc.BaseURL, HTTPClient: client})
		default:
			return nil, providers.ErrUnknownProvider
		}
		if err != nil {
			return nil, err
		}
		return providers.Throttled(adapter, pc.RequestsPerMinute), nil
	}
}

func (d *Dependencies) initPipeline(cfg *config.Config, now func() time.Time) error {
	policy := routing.RetryPolicy{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		BaseDelay:      cfg.Retry.BaseDelay,
		RequestTimeout: cfg.Retry.RequestTimeout,
	}
	completion := providers.CompletionOptions{
		MaxTokens:   cfg.Completion.MaxTokens,
		Temperature: cfg.Completion.Temperature,
		Timeout:     cfg.Retry.RequestTimeout,
	}

	orchestrator, err := routing.NewOrchestrator(d.Registry, policy, completion, d.Logger,
		routing.WithMetrics(d.Metrics),
		routing.WithClock(now),
		routing.WithLatencyCeiling(cfg.Retry.MaxRequestLatency))
	if err != nil {
		return err
	}
	d.Orchestrator = orchestrator

	persona, err := loadPersona(cfg.Persona)
	if err != nil {
		return err
	}

	// a nil *audit.Service must not become a non-nil sink
	var sink interview.OutcomeSink
	if d.Audit != nil {
		sink = d.Audit
	}
	d.Interview = interview.NewService(orchestrator, prompt.NewBuilder(persona, now), sink, d.Logger)
	return nil
}

func loadPersona(cfg config.PersonaConfig) (prompt.Persona, error) {
	if cfg.File != "" {
		return prompt.LoadPersona(cfg.File)
	}
	persona := prompt.Persona{Instructions: cfg.Text}
	if err := persona.Validate(); err != nil {
		return prompt.Persona{}, err
	}
	return persona, nil
}

// ServicesAvailable reports, for every known provider, whether it made it into the registry
func (d *Dependencies) ServicesAvailable() map[string]bool {
	available := make(map[string]bool, len(config.KnownProviders))
	for _, name := range config.KnownProviders {
		available[name] = d.Registry != nil && d.Registry.Has(name)
	}
	return available
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// drain outcomes before the pool goes away
	if d.Audit != nil {
		if err := d.Audit.Stop(auditStopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
		d.Audit = nil
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.DB = nil
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}

func (d *Dependencies) closeDB() {
	if d.DB != nil {
		_ = d.DB.Close()
		d.DB = nil
	}
}
