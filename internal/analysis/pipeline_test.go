package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeResolver struct {
	mu    sync.Mutex
	err   error
	hosts []string
}

func (r *fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts = append(r.hosts, host)
	if r.err != nil {
		return nil, r.err
	}
	return []string{"93.184.216.34"}, nil
}

type countingFetcher struct {
	mu       sync.Mutex
	attempts int
	fails    int
	urls     []string
}

func (f *countingFetcher) Fetch(_ context.Context, req FetchRequest) (FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	f.urls = append(f.urls, req.URL)
	if f.attempts <= f.fails {
		return FetchResponse{}, errors.New("transient error")
	}
	return FetchResponse{
		URL:        req.URL,
		StatusCode: 200,
		Body:       []byte("Example Domain"),
	}, nil
}

type bodyExtractor struct {
	err error
}

func (e bodyExtractor) Extract(resp FetchResponse) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return string(resp.Body), nil
}

type fakeAnalyzer struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []Completion
}

func (a *fakeAnalyzer) Complete(_ context.Context, c Completion) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, c)
	if a.err != nil {
		return "", a.err
	}
	return a.reply, nil
}

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time { return c.now }

type fakeIDGen struct{}

func (fakeIDGen) NewID() (string, error) { return "analysis-1", nil }

var testModels = []string{"llama-3.3-70b-versatile", "llama-3.3-70b-instruct"}

func newTestPipeline(resolver Resolver, fetcher Fetcher, extractor Extractor, analyzer Analyzer) *Pipeline {
	return newTestPipelineWithConfig(resolver, fetcher, extractor, analyzer,
		Config{Models: testModels, Temperature: DefaultTemperature})
}

func newTestPipelineWithConfig(resolver Resolver, fetcher Fetcher, extractor Extractor, analyzer Analyzer, cfg Config) *Pipeline {
	noSleep := func(context.Context, time.Duration) error { return nil }
	return NewPipeline(
		resolver,
		fetcher,
		extractor,
		analyzer,
		NewFixedRetryPolicy(3, 2*time.Second).WithSleeper(noSleep),
		fakeClock{now: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)},
		fakeIDGen{},
		cfg,
		zap.NewNop(),
	)
}

func validRequest() Request {
	return Request{URL: "example.com", Prompt: "summarize the main topic", APIKey: "gsk-test"}
}

func TestPipelineRunSucceeds(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{}
	fetcher := &countingFetcher{}
	analyzer := &fakeAnalyzer{reply: "It is an example.\n```\ncode\n``` See https://example.com"}
	p := newTestPipeline(resolver, fetcher, bodyExtractor{}, analyzer)

	res, err := p.Run(context.Background(), validRequest())
	require.NoError(t, err)

	require.Equal(t, "analysis-1", res.ID)
	require.Equal(t, testModels[0], res.Model)
	require.Equal(t, "https://example.com", res.Record.URL)
	require.Equal(t, "summarize the main topic", res.Record.Prompt)
	require.Equal(t, "Example Domain", res.Record.RawText)
	require.Equal(t, "It is an example. See", res.Record.Analysis)
	require.Equal(t, analyzer.reply, res.RawAnalysis)
	require.Equal(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC), res.Record.Timestamp)

	require.Equal(t, []string{"example.com"}, resolver.hosts)
	require.Equal(t, []string{"https://example.com"}, fetcher.urls)
	require.Len(t, analyzer.calls, 1)
	call := analyzer.calls[0]
	require.Equal(t, "gsk-test", call.APIKey)
	require.Equal(t, DefaultTemperature, call.Temperature)
	require.Equal(t, BuildPrompt("https://example.com", "Example Domain", "summarize the main topic"), call.Prompt)
}

func TestPipelineSendsZeroTemperature(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{reply: "ok"}
	p := newTestPipelineWithConfig(&fakeResolver{}, &countingFetcher{}, bodyExtractor{}, analyzer,
		Config{Models: testModels, Temperature: 0})

	_, err := p.Run(context.Background(), validRequest())
	require.NoError(t, err)
	require.Len(t, analyzer.calls, 1)
	require.Zero(t, analyzer.calls[0].Temperature)
}

func TestPipelineDNSFailureShortCircuits(t *testing.T) {
	t.Parallel()

	resolver := &fakeResolver{err: errors.New("no such host")}
	fetcher := &countingFetcher{}
	analyzer := &fakeAnalyzer{}
	p := newTestPipeline(resolver, fetcher, bodyExtractor{}, analyzer)

	_, err := p.Run(context.Background(), validRequest())

	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, "example.com", domainErr.Host)
	require.Zero(t, fetcher.attempts, "no HTTP request may follow a DNS failure")
	require.Empty(t, analyzer.calls)
}

func TestPipelineTransientFailureMatchesImmediateSuccess(t *testing.T) {
	t.Parallel()

	analyzer := func() *fakeAnalyzer { return &fakeAnalyzer{reply: "Topic: examples."} }

	immediate, err := newTestPipeline(&fakeResolver{}, &countingFetcher{}, bodyExtractor{}, analyzer()).
		Run(context.Background(), validRequest())
	require.NoError(t, err)

	flaky := &countingFetcher{fails: 2}
	retried, err := newTestPipeline(&fakeResolver{}, flaky, bodyExtractor{}, analyzer()).
		Run(context.Background(), validRequest())
	require.NoError(t, err)

	require.Equal(t, 3, flaky.attempts)
	require.Equal(t, immediate, retried)
}

func TestPipelineStopsAfterThreeFetchFailures(t *testing.T) {
	t.Parallel()

	fetcher := &countingFetcher{fails: 10}
	analyzer := &fakeAnalyzer{}
	p := newTestPipeline(&fakeResolver{}, fetcher, bodyExtractor{}, analyzer)

	_, err := p.Run(context.Background(), validRequest())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, 3, fetchErr.Attempts)
	require.Equal(t, 3, fetcher.attempts, "a fourth request must never be made")
	require.Empty(t, analyzer.calls)
	require.Equal(t, CategoryFetch, Explain(err).Category)
}

func TestPipelineAnalyzerFailureIsGeneric(t *testing.T) {
	t.Parallel()

	analyzer := &fakeAnalyzer{err: errors.New("401 invalid api key")}
	p := newTestPipeline(&fakeResolver{}, &countingFetcher{}, bodyExtractor{}, analyzer)

	_, err := p.Run(context.Background(), validRequest())
	require.ErrorContains(t, err, "invalid api key")
	require.Equal(t, CategoryGeneric, Explain(err).Category)
	require.Len(t, analyzer.calls, 1, "the completion call is never retried")
}

func TestPipelineExtractFailureIsGeneric(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(&fakeResolver{}, &countingFetcher{}, bodyExtractor{err: errors.New("bad html")}, &fakeAnalyzer{})

	_, err := p.Run(context.Background(), validRequest())
	require.ErrorContains(t, err, "extract text")
	require.Equal(t, CategoryGeneric, Explain(err).Category)
}

func TestPipelineValidate(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(&fakeResolver{}, &countingFetcher{}, bodyExtractor{}, &fakeAnalyzer{})

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"empty url", Request{Prompt: "x", APIKey: "k"}, ErrEmptyURL},
		{"empty prompt", Request{URL: "example.com", Prompt: "  ", APIKey: "k"}, ErrEmptyPrompt},
		{"missing key", Request{URL: "example.com", Prompt: "x"}, ErrMissingAPIKey},
		{"unknown model", Request{URL: "example.com", Prompt: "x", APIKey: "k", Model: "gpt-x"}, ErrUnknownModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := p.Validate(tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	req, err := p.Validate(Request{URL: "example.com", Prompt: "x", APIKey: "k", Model: testModels[1]})
	require.NoError(t, err)
	require.Equal(t, testModels[1], req.Model)
	require.Equal(t, "https://example.com", req.URL)
	require.Equal(t, testModels, p.Models())
	require.Equal(t, testModels[0], p.DefaultModel())
}
