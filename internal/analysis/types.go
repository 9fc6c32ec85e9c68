// Package analysis defines the fetch, extract, analyze and export pipeline
// along with the types shared across its stages.
package analysis

import (
	"net/http"
	"time"
)

// Record is the single exported row for one analysis.
type Record struct {
	URL       string    `json:"url"`
	Prompt    string    `json:"prompt"`
	RawText   string    `json:"raw_text"`
	Analysis  string    `json:"analysis"`
	Timestamp time.Time `json:"timestamp"`
}

// Request carries the user-supplied inputs for one run.
type Request struct {
	URL    string
	Prompt string
	Model  string
	// APIKey is used for the completion call only and is never logged.
	APIKey string
}

// Result is returned by Pipeline.Run on success.
type Result struct {
	ID          string `json:"id"`
	Model       string `json:"model"`
	RawAnalysis string `json:"raw_analysis"`
	Record      Record `json:"record"`
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	AnalysisID string
	URL        string
	Attempt    int
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentType returns the response Content-Type header, if any.
func (r FetchResponse) ContentType() string {
	if r.Headers == nil {
		return ""
	}
	return r.Headers.Get("Content-Type")
}

// Completion is the input for a single chat-completion call.
type Completion struct {
	APIKey      string
	Model       string
	Prompt      string
	Temperature float64
}
