package engine

import (
	"context"
	"time"

	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/resilience"
)

// Retrying wraps factory so that failed creation attempts are retried with
// backoff. Useful for network inputs and outputs that may not be reachable
// yet. Configuration faults are never retried.
func Retrying[E any](factory Factory[E], cfg resilience.RetryConfig) Factory[E] {
	if !cfg.Enabled() {
		return factory
	}
	return func(ctx context.Context, opts options.Options) (E, error) {
		c := cfg
		if c.OnRetry == nil {
			target := opts.Target()
			c.OnRetry = func(attempt int, err error, backoff time.Duration) {
				logger.Warn("Engine creation failed, retrying", logger.Fields(
					"target", target,
					"attempt", attempt,
					"backoff", backoff.String(),
					logger.FieldError, err.Error(),
				))
			}
		}
		return resilience.Retry(ctx, c, func(ctx context.Context) (E, error) {
			return factory(ctx, opts)
		})
	}
}
