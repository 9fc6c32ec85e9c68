package analysis

import (
	"errors"
	"fmt"
)

// Input validation errors, reported before the pipeline runs.
var (
	ErrEmptyPrompt   = errors.New("analysis prompt is required")
	ErrMissingAPIKey = errors.New("api key is required")
	ErrUnknownModel  = errors.New("model is not one of the configured presets")
)

// Category groups failures by how they are reported to the user.
type Category string

// Failure categories.
const (
	CategoryFetch   Category = "fetch"
	CategoryGeneric Category = "generic"
)

// DomainError reports a host that could not be resolved. It is never retried.
type DomainError struct {
	Host string
	Err  error
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("resolve domain %s: %v", e.Host, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// FetchError reports a fetch that failed on every attempt.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Failure is the user-facing rendering of a pipeline error.
type Failure struct {
	Category Category `json:"category"`
	Message  string   `json:"error"`
	Guidance []string `json:"guidance"`
}

// Explain maps an error to the message and guidance shown to the user.
func Explain(err error) Failure {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return Failure{
			Category: CategoryFetch,
			Message:  fmt.Sprintf("Could not resolve the domain: %s", domainErr.Host),
			Guidance: []string{"Please check if the website URL is correct and try again."},
		}
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return Failure{
			Category: CategoryFetch,
			Message:  fmt.Sprintf("Error fetching the webpage: %v", fetchErr.Err),
			Guidance: []string{
				"Please try the following:",
				"1. Check if the website URL is correct",
				"2. Make sure you have a stable internet connection",
				"3. Try again in a few moments",
			},
		}
	}
	return Failure{
		Category: CategoryGeneric,
		Message:  fmt.Sprintf("An error occurred: %v", err),
		Guidance: []string{"Please try again or contact support if the issue persists"},
	}
}
