package inventory

import (
	"context"
	"time"

	"github.com/retailchain/inventory/internal/domain/shared"
)

const maxConcurrencyRetries = 3

// Backoff before retrying an optimistically-locked write that lost the race.
var concurrencyBackoff = []time.Duration{
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
}

// withConcurrencyRetry re-executes fn when it fails with a
// CONCURRENCY_CONFLICT. Each attempt must re-read its aggregates, so fn is
// expected to open its own transaction scope. Any other error aborts
// immediately; the conflict is returned to the caller after the last attempt.
func withConcurrencyRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxConcurrencyRetries; attempt++ {
		err = fn()
		if err == nil || !shared.IsCode(err, shared.ErrConcurrencyConflict.Code) {
			return err
		}
		if attempt < maxConcurrencyRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(concurrencyBackoff[attempt]):
			}
		}
	}
	return err
}
