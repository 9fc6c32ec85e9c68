package analysis

import (
	"context"
	"time"
)

// Resolver looks up a host before any HTTP request is made.
// *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Extractor turns an HTML response into plain text.
type Extractor interface {
	Extract(resp FetchResponse) (string, error)
}

// Analyzer sends a composed prompt to a hosted completion endpoint.
type Analyzer interface {
	Complete(ctx context.Context, c Completion) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces analysis IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Sleeper waits between fetch attempts.
type Sleeper func(ctx context.Context, d time.Duration) error
