package middleware

import (
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/islandman/hotel-listing/internal/api/metrics"
	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
)

const (
	HeaderRateLimitLimit     = "X-Rate-Limit-Limit"
	HeaderRateLimitRemaining = "X-Rate-Limit-Remaining"
	HeaderRateLimitReset     = "X-Rate-Limit-Reset"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Store ports.RateLimitStore
	Rules []domain.RateLimitRule
	// KeyFunc identifies the client. Defaults to echo's RealIP.
	KeyFunc func(c echo.Context) string
	Skipper echomiddleware.Skipper
	Log     zerolog.Logger
}

// RateLimit counts each request against every matching rule before any
// authentication runs. A rule is exceeded once a client makes more than
// Limit requests within one Period; the request is then rejected with a
// *domain.RateLimitError. Store failures admit the request.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Store == nil || len(cfg.Rules) == 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c echo.Context) string { return c.RealIP() }
	}
	if cfg.Skipper == nil {
		cfg.Skipper = echomiddleware.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper(c) {
				return next(c)
			}

			req := c.Request()
			client := cfg.KeyFunc(c)
			var tightest *domain.RateLimitDecision

			for _, rule := range cfg.Rules {
				if !ruleMatches(rule.Endpoint, req.Method, req.URL.Path) {
					continue
				}

				d, err := cfg.Store.Take(req.Context(), rule.Endpoint+"|"+client, rule.Limit, rule.Period)
				if err != nil {
					metrics.RateLimitStoreErrorsTotal.Inc()
					cfg.Log.Warn().Err(err).Str("rule", rule.Endpoint).Msg("rate limit store unavailable, admitting request")
					continue
				}
				if !d.Allowed {
					metrics.RateLimitedTotal.WithLabelValues(rule.Endpoint).Inc()
					setRateLimitHeaders(c, d)
					return &domain.RateLimitError{Rule: rule.Endpoint, RetryAfter: d.RetryAfter}
				}
				if tightest == nil || d.Remaining < tightest.Remaining {
					d := d
					tightest = &d
				}
			}

			if tightest != nil {
				setRateLimitHeaders(c, *tightest)
			}
			return next(c)
		}
	}
}

func setRateLimitHeaders(c echo.Context, d domain.RateLimitDecision) {
	h := c.Response().Header()
	h.Set(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
	h.Set(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
	if !d.ResetAt.IsZero() {
		h.Set(HeaderRateLimitReset, d.ResetAt.UTC().Format(time.RFC3339))
	}
}

// RetryAfterSeconds rounds d up to whole seconds, never below one.
func RetryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

// ruleMatches reports whether endpoint ("*" or "METHOD:/glob") covers the
// request.
func ruleMatches(endpoint, method, urlPath string) bool {
	if endpoint == "*" {
		return true
	}
	ruleMethod, pattern, ok := strings.Cut(endpoint, ":")
	if !ok {
		return false
	}
	if ruleMethod != "*" && !strings.EqualFold(ruleMethod, method) {
		return false
	}
	matched, err := path.Match(strings.ToLower(pattern), strings.ToLower(urlPath))
	return err == nil && matched
}
