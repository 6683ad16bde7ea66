package price

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Source returns a token's USD price as a decimal string.
type Source interface {
	Name() string
	PriceUSD(ctx context.Context, token string) (string, error)
}

// Resolver asks each source in order, retrying each one, and returns the
// first usable quote.
type Resolver struct {
	sources    []Source
	retries    int
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewResolver builds a resolver. Nil sources are skipped.
func NewResolver(logger *zap.Logger, retries int, retryDelay time.Duration, sources ...Source) *Resolver {
	if retries <= 0 {
		retries = 1
	}
	var kept []Source
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Resolver{
		sources:    kept,
		retries:    retries,
		retryDelay: retryDelay,
		logger:     logger.Named("price"),
	}
}

func (r *Resolver) Name() string { return "resolver" }

// PriceUSD returns the first price any source yields. When every source
// fails the result is "" with an error wrapping ErrNoPrice.
func (r *Resolver) PriceUSD(ctx context.Context, token string) (string, error) {
	var errs []error
	for _, src := range r.sources {
		p, err := r.fetch(ctx, src, token)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.logger.Debug("Price source failed",
			zap.String("source", src.Name()),
			zap.String("token", token),
			zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
	}
	return "", fmt.Errorf("%w for %s: %w", ErrNoPrice, token, errors.Join(errs...))
}

func (r *Resolver) fetch(ctx context.Context, src Source, token string) (string, error) {
	notify := func(err error, d time.Duration) {
		r.logger.Debug("Retrying price fetch",
			zap.String("source", src.Name()),
			zap.String("token", token),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	operation := func() (string, error) {
		p, err := src.PriceUSD(ctx, token)
		if errors.Is(err, ErrOutOfRange) {
			return "", backoff.Permanent(err)
		}
		return p, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.retryDelay)),
		backoff.WithMaxTries(uint(r.retries)),
		backoff.WithNotify(notify))
}

// Quote returns the price or "" when unavailable, logging the failure.
func (r *Resolver) Quote(ctx context.Context, token string) string {
	p, err := r.PriceUSD(ctx, token)
	if err != nil {
		r.logger.Warn("Price unavailable", zap.String("token", token), zap.Error(err))
		return ""
	}
	return p
}
