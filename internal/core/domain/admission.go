package domain

import (
	"fmt"
	"time"
)

// RateLimitRule caps how many requests a single client may make to the
// matching endpoints within Period.
//
// Endpoint is either "*" (every route) or "METHOD:/path/pattern", where
// METHOD may itself be "*" and the path uses path.Match globbing.
type RateLimitRule struct {
	Endpoint string        `yaml:"endpoint"`
	Limit    int           `yaml:"limit"`
	Period   time.Duration `yaml:"period"`
}

// RateLimitDecision is the outcome of counting one request against a rule.
type RateLimitDecision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RateLimitError rejects a request before it reaches authentication.
type RateLimitError struct {
	Rule       string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, retry after %s", e.Rule, e.RetryAfter)
}

// Is lets errors.Is(err, ErrRateLimited) match any *RateLimitError.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// CachePolicy is the freshness advice attached to successful reads.
type CachePolicy struct {
	MaxAge         time.Duration
	MustRevalidate bool
}
