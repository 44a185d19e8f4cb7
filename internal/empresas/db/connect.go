package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Connect opens the repository, retrying with exponential backoff while
// the database is still coming up. maxRetries of zero retries until ctx
// ends or a minute has passed.
func Connect(ctx context.Context, cfg *Config, maxRetries uint64, logger *zap.Logger) (*Repository, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 500 * time.Millisecond
	exp.MaxElapsedTime = time.Minute

	var policy backoff.BackOff = exp
	if maxRetries > 0 {
		policy = backoff.WithMaxRetries(exp, maxRetries)
	}

	var repo *Repository
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		r, err := NewRepository(cfg)
		if err != nil {
			logger.Warn("database not ready",
				zap.Error(err),
				zap.Int("attempt", attempt),
				zap.String("driver", cfg.Driver),
			)
			return err
		}
		repo = r
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database after %d attempts: %w", attempt, err)
	}
	return repo, nil
}
