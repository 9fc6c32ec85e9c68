package analysis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/webanalyst/internal/metrics"
)

// Config controls Pipeline behavior.
type Config struct {
	Models []string
	// Temperature is sent as is; zero requests greedy decoding.
	Temperature float64
}

// DefaultModel returns the first configured preset.
func (c Config) DefaultModel() string {
	if len(c.Models) == 0 {
		return ""
	}
	return c.Models[0]
}

// Pipeline runs fetch, extract, analyze, clean and package for one request.
type Pipeline struct {
	resolver  Resolver
	fetcher   Fetcher
	extractor Extractor
	analyzer  Analyzer
	retry     *FixedRetryPolicy
	clock     Clock
	idGen     IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(
	resolver Resolver,
	fetcher Fetcher,
	extractor Extractor,
	analyzer Analyzer,
	retry *FixedRetryPolicy,
	clock Clock,
	idGen IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Pipeline {
	if retry == nil {
		retry = NewFixedRetryPolicy(DefaultFetchAttempts, DefaultFetchRetryDelay)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		resolver:  resolver,
		fetcher:   fetcher,
		extractor: extractor,
		analyzer:  analyzer,
		retry:     retry,
		clock:     clock,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger,
	}
}

// Models returns the configured model presets.
func (p *Pipeline) Models() []string {
	return slices.Clone(p.cfg.Models)
}

// DefaultModel returns the preset used when a request names none.
func (p *Pipeline) DefaultModel() string {
	return p.cfg.DefaultModel()
}

// Validate normalizes the request and checks its inputs without any I/O.
func (p *Pipeline) Validate(req Request) (Request, error) {
	normalized, err := NormalizeURL(req.URL)
	if err != nil {
		return Request{}, err
	}
	req.URL = normalized
	if strings.TrimSpace(req.Prompt) == "" {
		return Request{}, ErrEmptyPrompt
	}
	if req.APIKey == "" {
		return Request{}, ErrMissingAPIKey
	}
	if req.Model == "" {
		req.Model = p.cfg.DefaultModel()
	}
	if !slices.Contains(p.cfg.Models, req.Model) {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownModel, req.Model)
	}
	return req, nil
}

// Run executes every stage in order. It returns either a complete Result or an error.
func (p *Pipeline) Run(ctx context.Context, req Request) (Result, error) {
	req, err := p.Validate(req)
	if err != nil {
		metrics.ObserveAnalysis("invalid")
		return Result{}, err
	}

	id, err := p.idGen.NewID()
	if err != nil {
		metrics.ObserveAnalysis("failed")
		return Result{}, fmt.Errorf("generate analysis id: %w", err)
	}
	logger := p.logger.With(zap.String("analysis_id", id), zap.String("url", req.URL))
	logger.Info("analysis started", zap.String("model", req.Model))

	result, err := p.run(ctx, id, req, logger)
	if err != nil {
		failure := Explain(err)
		metrics.ObserveAnalysis(fmt.Sprintf("failed_%s", failure.Category))
		logger.Error("analysis failed", zap.String("category", string(failure.Category)), zap.Error(err))
		return Result{}, err
	}
	metrics.ObserveAnalysis("succeeded")
	logger.Info("analysis completed", zap.Int("analysis_chars", len(result.Record.Analysis)))
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, id string, req Request, logger *zap.Logger) (Result, error) {
	if err := p.resolve(ctx, req.URL); err != nil {
		return Result{}, err
	}

	resp, err := p.fetch(ctx, id, req.URL, logger)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	text, err := p.extractor.Extract(resp)
	metrics.ObserveStage("extract", time.Since(start))
	if err != nil {
		return Result{}, fmt.Errorf("extract text: %w", err)
	}
	logger.Debug("page text extracted", zap.Int("chars", len([]rune(text))))

	start = time.Now()
	raw, err := p.analyzer.Complete(ctx, Completion{
		APIKey:      req.APIKey,
		Model:       req.Model,
		Prompt:      BuildPrompt(req.URL, text, req.Prompt),
		Temperature: p.cfg.Temperature,
	})
	metrics.ObserveStage("analyze", time.Since(start))
	if err != nil {
		return Result{}, fmt.Errorf("analyze page: %w", err)
	}

	return Result{
		ID:          id,
		Model:       req.Model,
		RawAnalysis: raw,
		Record: Record{
			URL:       req.URL,
			Prompt:    req.Prompt,
			RawText:   text,
			Analysis:  Clean(raw),
			Timestamp: p.clock.Now(),
		},
	}, nil
}

func (p *Pipeline) resolve(ctx context.Context, normalized string) error {
	host, err := Hostname(normalized)
	if err != nil {
		return &DomainError{Host: normalized, Err: err}
	}
	start := time.Now()
	addrs, err := p.resolver.LookupHost(ctx, host)
	metrics.ObserveStage("resolve", time.Since(start))
	if err != nil {
		return &DomainError{Host: host, Err: err}
	}
	if len(addrs) == 0 {
		return &DomainError{Host: host, Err: errors.New("no addresses")}
	}
	return nil
}

func (p *Pipeline) fetch(ctx context.Context, id, url string, logger *zap.Logger) (FetchResponse, error) {
	var resp FetchResponse
	start := time.Now()
	attempts, err := p.retry.Do(ctx, func(attempt int) error {
		r, fetchErr := p.fetcher.Fetch(ctx, FetchRequest{AnalysisID: id, URL: url, Attempt: attempt})
		if fetchErr != nil {
			metrics.ObserveFetchAttempt("error", 0)
			logger.Warn("fetch attempt failed",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", p.retry.MaxAttempts()),
				zap.Error(fetchErr),
			)
			return fetchErr
		}
		metrics.ObserveFetchAttempt("ok", len(r.Body))
		resp = r
		return nil
	})
	metrics.ObserveStage("fetch", time.Since(start))
	if err != nil {
		return FetchResponse{}, &FetchError{URL: url, Attempts: attempts, Err: err}
	}
	logger.Debug("page fetched",
		zap.Int("attempts", attempts),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(resp.Body)),
	)
	return resp, nil
}
