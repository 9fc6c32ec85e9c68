// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"fmt"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/webanalyst/internal/analysis"
	"github.com/JakeFAU/webanalyst/internal/clock/system"
	"github.com/JakeFAU/webanalyst/internal/config"
	"github.com/JakeFAU/webanalyst/internal/extractor/htmltext"
	collyfetcher "github.com/JakeFAU/webanalyst/internal/fetcher/colly"
	"github.com/JakeFAU/webanalyst/internal/id/uuid"
	"github.com/JakeFAU/webanalyst/internal/llm"
	"github.com/JakeFAU/webanalyst/internal/logging"
	"github.com/JakeFAU/webanalyst/internal/metrics"
)

// App holds the shared services built from one Config.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	pipeline *analysis.Pipeline
}

// GetLogger returns the shared zap logger.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetPipeline returns the analysis pipeline.
func (a *App) GetPipeline() *analysis.Pipeline {
	return a.pipeline
}

// GetConfig returns the configuration the services were built from.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// New builds the logger and wires the pipeline from cfg.
// It fails fast if any service cannot be initialized.
func New(cfg config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithLogger(cfg, logger)
}

// NewWithLogger wires the pipeline from cfg using an existing logger.
func NewWithLogger(cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("init clock: %w", err)
	}
	metrics.Init()

	headers := collyfetcher.DefaultHeaders()
	if cfg.Fetch.Accept != "" {
		headers.Set("Accept", cfg.Fetch.Accept)
	}
	if cfg.Fetch.AcceptLanguage != "" {
		headers.Set("Accept-Language", cfg.Fetch.AcceptLanguage)
	}
	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Headers:   headers,
		Timeout:   cfg.FetchTimeout(),
	})

	client := llm.New(llm.Config{
		BaseURL:    cfg.LLM.BaseURL,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout()},
	}, logger.Named("llm"))

	pipeline := analysis.NewPipeline(
		net.DefaultResolver,
		fetcher,
		htmltext.New(cfg.Extract.MaxChars),
		client,
		analysis.NewFixedRetryPolicy(cfg.Fetch.MaxAttempts, cfg.RetryDelay()),
		system.New(loc),
		uuid.New(),
		analysis.Config{
			Models:      cfg.LLM.Models,
			Temperature: cfg.LLM.Temperature,
		},
		logger.Named("pipeline"),
	)

	logger.Debug("application services initialized",
		zap.Strings("models", cfg.LLM.Models),
		zap.String("llm_base_url", cfg.LLM.BaseURL),
		zap.Int("fetch_attempts", cfg.Fetch.MaxAttempts),
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		pipeline: pipeline,
	}, nil
}

// Close flushes buffered log entries. It is best-effort.
func (a *App) Close() {
	_ = a.logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
}
