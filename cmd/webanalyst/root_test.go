package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/webanalyst/internal/analysis"
	"github.com/JakeFAU/webanalyst/internal/api"
	"github.com/JakeFAU/webanalyst/internal/config"
)

// MockApp mocks the App interface.
type MockApp struct {
	mock.Mock
}

func (m *MockApp) Close() {
	m.Called()
}

func (m *MockApp) GetLogger() *zap.Logger {
	return zap.NewNop()
}

func (m *MockApp) GetConfig() config.Config {
	args := m.Called()
	return args.Get(0).(config.Config)
}

func (m *MockApp) GetRunner() api.Runner {
	args := m.Called()
	return args.Get(0).(api.Runner)
}

// MockRunner mocks api.Runner.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, req analysis.Request) (analysis.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(analysis.Result), args.Error(1)
}

func (m *MockRunner) Models() []string {
	return []string{"llama-3.3-70b-versatile", "llama-3.3-70b-instruct"}
}

func (m *MockRunner) DefaultModel() string {
	return "llama-3.3-70b-versatile"
}

var sampleResult = analysis.Result{
	ID:          "0190-analysis",
	Model:       "llama-3.3-70b-versatile",
	RawAnalysis: "**Summary**: documentation domain",
	Record: analysis.Record{
		URL:       "https://example.com",
		Prompt:    "summarize the main topic",
		Analysis:  "**Summary**: documentation domain",
		Timestamp: time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC),
	},
}

// withMockApp swaps the application factory for the duration of a test.
func withMockApp(t *testing.T, runner *MockRunner) *MockApp {
	t.Helper()
	m := &MockApp{}
	m.On("Close").Return()
	m.On("GetRunner").Return(runner).Maybe()
	m.On("GetConfig").Return(config.Config{}).Maybe()

	original := newApp
	newApp = func(config.Config) (App, error) { return m, nil }
	t.Cleanup(func() { newApp = original })
	return m
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestAnalyzeWritesCSVToDirectory(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Run", mock.Anything, analysis.Request{
		URL:    "example.com",
		Prompt: "summarize the main topic",
		APIKey: "gsk-secret",
	}).Return(sampleResult, nil).Once()
	appMock := withMockApp(t, runner)

	dir := t.TempDir()
	stdout, _, err := execute(t, "gsk-secret\n",
		"analyze", "--url", "example.com", "--prompt", "summarize the main topic", "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "**Summary**: documentation domain")

	body, err := os.ReadFile(filepath.Join(dir, "web_analysis_20240309_140507.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Website URL,Analysis Prompt,Analysis Result,Analysis Date,Analysis Time\n"+
		"https://example.com,summarize the main topic,**Summary**: documentation domain,2024-03-09,14:05:07\n",
		string(body))

	runner.AssertExpectations(t)
	appMock.AssertCalled(t, "Close")
}

func TestAnalyzeWritesCSVToStdout(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Run", mock.Anything, mock.AnythingOfType("analysis.Request")).Return(sampleResult, nil).Once()
	withMockApp(t, runner)

	stdout, stderr, err := execute(t, "k", "analyze", "--url", "example.com", "--prompt", "p", "--out", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "Website URL,"), stdout)
	assert.Contains(t, stderr, "Analysis Results:")
}

func TestAnalyzeReportsFetchFailure(t *testing.T) {
	runner := &MockRunner{}
	failure := &analysis.DomainError{Host: "nope.invalid", Err: errors.New("no such host")}
	runner.On("Run", mock.Anything, mock.Anything).Return(analysis.Result{}, failure).Once()
	withMockApp(t, runner)

	_, stderr, err := execute(t, "k\n", "analyze", "--url", "nope.invalid", "--prompt", "p")
	require.ErrorAs(t, err, new(*analysis.DomainError))
	assert.Contains(t, stderr, "Error: Could not resolve the domain: nope.invalid")
	assert.Contains(t, stderr, "Please check if the website URL is correct and try again.")
}

func TestAnalyzePassesValidationErrorsThrough(t *testing.T) {
	runner := &MockRunner{}
	runner.On("Run", mock.Anything, mock.Anything).Return(analysis.Result{}, analysis.ErrMissingAPIKey).Once()
	withMockApp(t, runner)

	_, stderr, err := execute(t, "", "analyze", "--url", "example.com", "--prompt", "p")
	require.ErrorIs(t, err, analysis.ErrMissingAPIKey)
	assert.Contains(t, stderr, "api key is required")
}

func TestModelsMarksDefault(t *testing.T) {
	withMockApp(t, &MockRunner{})

	stdout, _, err := execute(t, "", "models")
	require.NoError(t, err)
	assert.Equal(t, "llama-3.3-70b-versatile (default)\nllama-3.3-70b-instruct\n", stdout)
}

func TestRootFailsOnBadConfig(t *testing.T) {
	withMockApp(t, &MockRunner{})

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fetch:\n  max_attempts: 0\n"), 0o600))

	_, _, err := execute(t, "", "--config", path, "models")
	require.ErrorContains(t, err, "fetch.max_attempts")
}

func TestReadAPIKeyFromPipe(t *testing.T) {
	t.Parallel()

	key, err := readAPIKey(strings.NewReader("  gsk-abc  \nignored\n"), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "gsk-abc", key)

	key, err = readAPIKey(strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, key)
}
