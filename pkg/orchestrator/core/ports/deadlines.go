package ports

import (
	"context"
	"time"
)

// DeadlineFeed exposes upcoming county sale dates. The Work Queue Builder
// boosts the urgency of counties whose next sale falls inside the configured
// horizon.
type DeadlineFeed interface {
	// NextDeadline returns the soonest future sale date for the county, or nil
	// when none is known.
	NextDeadline(ctx context.Context, countyID string) (*time.Time, error)
	// UpcomingDeadlines returns the soonest future sale date for every county
	// that has one, in a single query.
	UpcomingDeadlines(ctx context.Context) (map[string]time.Time, error)
}
