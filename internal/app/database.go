package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	connectAttempts  = 6
	connectBaseDelay = 500 * time.Millisecond
	connectMaxDelay  = 8 * time.Second
)

// ConnectDB открывает пул и ждёт доступности базы с экспоненциальной задержкой
func ConnectDB(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	backoff := retry.WithMaxRetries(connectAttempts, retry.WithCappedDuration(connectMaxDelay, retry.NewExponential(connectBaseDelay)))

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("Database is not ready",
				zap.Error(err),
				zap.Int("attempt", attempt),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Connected to database", zap.Int("attempts", attempt))
	return pool, nil
}
