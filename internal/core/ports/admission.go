package ports

import (
	"context"
	"time"

	"github.com/islandman/hotel-listing/internal/core/domain"
)

// RateLimitStore counts requests per key. Take must increment and check in
// one atomic step so concurrent requests cannot both squeeze under the limit.
type RateLimitStore interface {
	Take(ctx context.Context, key string, limit int, period time.Duration) (domain.RateLimitDecision, error)
}
