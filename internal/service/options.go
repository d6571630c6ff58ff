package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/report"
)

// StatsCache caches pause statistics per task. A nil StatsCache disables
// caching.
type StatsCache interface {
	Get(ctx context.Context, taskID uuid.UUID) (*report.Stats, bool, error)
	Set(ctx context.Context, taskID uuid.UUID, stats *report.Stats) error
	Invalidate(ctx context.Context, taskID uuid.UUID) error
}

type options struct {
	now        func() time.Time
	maxRetries int
	limits     models.PauseLimits
	logger     *slog.Logger
}

// Option configures a service.
type Option func(*options)

// WithClock replaces time.Now. Tests use it to advance time deterministically.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithMaxRetries sets how many times a write that lost a version race is
// retried before ErrConcurrencyConflict is returned.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

func WithPauseLimits(l models.PauseLimits) Option {
	return func(o *options) { o.limits = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func newOptions(opts []Option) options {
	o := options{
		now:        time.Now,
		maxRetries: 3,
		limits:     models.DefaultPauseLimits(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// clock returns the current instant in UTC at the precision the store keeps.
func (o options) clock() time.Time {
	return o.now().UTC().Truncate(time.Microsecond)
}

// retry runs fn until it succeeds, fails with anything other than a version
// conflict, or has been retried maxRetries times.
func (o options) retry(ctx context.Context, op string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errors.Is(err, models.ErrConcurrencyConflict) || attempt >= o.maxRetries {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		o.logger.Debug("retrying after concurrent modification", "op", op, "attempt", attempt+1)
	}
}
