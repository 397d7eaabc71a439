package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"lanshare/internal/util/logger/sl"
)

type RetryOptions struct {
	// максимальное кол-во попыток (0 и 1 - одна попытка)
	MaxAttempts    int
	UseExponential bool
	// начальная задержка
	InitialDelay time.Duration
	// максимальная задержка
	MaxDelay time.Duration
}

// ConnectWithRetry calls Connect until it succeeds, the attempts run out
// or ctx is done. ErrAlreadyConnected is returned at once.
func (c *Client) ConnectWithRetry(ctx context.Context, address string, opts RetryOptions) error {
	const op = "tcp.ConnectWithRetry"
	log := c.log.With(slog.String("op", op), slog.String("address", address))

	attempts := max(opts.MaxAttempts, 1)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := opts.InitialDelay
			if opts.UseExponential {
				delay = calculateExponentialBackoff(opts.InitialDelay, attempt-1, opts.MaxDelay)
			}

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: %w", op, ctx.Err())
			case <-timer.C:
			}
		}

		err = c.Connect(ctx, address)
		if err == nil || errors.Is(err, ErrAlreadyConnected) {
			return err
		}
		log.Debug("connection attempt failed", slog.Int("attempt", attempt+1), sl.Err(err))
	}

	return fmt.Errorf("%s: %d attempts: %w", op, attempts, err)
}

// calculateExponentialBackoff вычисляет время задержки по exp алгоритму
func calculateExponentialBackoff(baseDelay time.Duration, attempt int, maxDelay time.Duration) time.Duration {
	multiplier := 1 << uint(attempt)
	delay := baseDelay * time.Duration(multiplier)

	if maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	return delay
}
