package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// RetryConfig bounds the exponential backoff applied to transient API
// errors. MaxAttempts counts the first call.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig retries up to five attempts, waiting 1s doubling to 60s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: time.Second,
		MaxInterval:     time.Minute,
	}
}

// ErrRetriesExhausted wraps the last transient error once every attempt
// has failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// IsTransient reports whether err is a rate-limit or temporary server
// error worth retrying.
func IsTransient(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialInterval
	b.MaxInterval = c.MaxInterval
	b.MaxElapsedTime = 0
	b.Multiplier = 2
	attempts := max(c.MaxAttempts, 1)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// call runs op under the rate limiter, retrying transient failures.
func (p *Provider) call(ctx context.Context, what string, op func() error) error {
	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		if err := p.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		err := op()
		if err == nil || IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, p.retry.backOff(ctx), func(err error, wait time.Duration) {
		p.log.Warn("transient gmail error, retrying",
			zap.String("call", what),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil && IsTransient(err) {
		return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
	}
	return err
}
