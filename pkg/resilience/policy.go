package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Outcome classifies a guarded call.
type Outcome int

const (
	// Succeeded means fn returned without error.
	Succeeded Outcome = iota
	// Degraded means the dependency failed, timed out or the breaker was
	// open. The caller should answer with its fallback.
	Degraded
	// Rejected means fn returned a business error that must reach the caller.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Degraded:
		return "degraded"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// PolicyConfig configures a Policy.
type PolicyConfig struct {
	Breaker BreakerConfig
	// Timeout bounds each call. Zero leaves the caller's deadline alone.
	Timeout time.Duration
}

// Policy runs calls under a per-call timeout and a circuit breaker. Business
// errors (apperrors.IsBusiness) pass through untouched and never trip the
// breaker.
type Policy[T any] struct {
	name    string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[T]
	logger  *slog.Logger
}

// NewPolicy builds a Policy from cfg.
func NewPolicy[T any](cfg PolicyConfig, logger *slog.Logger) *Policy[T] {
	isSuccessful := func(err error) bool {
		return err == nil || apperrors.IsBusiness(err)
	}
	return &Policy[T]{
		name:    cfg.Breaker.Name,
		timeout: cfg.Timeout,
		breaker: NewBreaker[T](cfg.Breaker, isSuccessful, logger),
		logger:  logger,
	}
}

// Execute runs fn. On Degraded the returned error is the cause, for logging
// only; callers are expected to substitute a fallback result.
func (p *Policy[T]) Execute(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, Outcome, error) {
	res, err := p.breaker.Execute(func() (T, error) {
		callCtx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		return fn(callCtx)
	})

	switch {
	case err == nil:
		return res, Succeeded, nil
	case apperrors.IsBusiness(err):
		return res, Rejected, err
	default:
		fallbacks.WithLabelValues(p.name).Inc()
		if p.logger != nil {
			p.logger.WarnContext(ctx, "dependency failure, degrading",
				slog.String("breaker", p.name),
				slog.String("error", err.Error()),
			)
		}
		var zero T
		return zero, Degraded, err
	}
}

// State returns the breaker state.
func (p *Policy[T]) State() gobreaker.State {
	return p.breaker.State()
}
