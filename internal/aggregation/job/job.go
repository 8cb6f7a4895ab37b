// Package job runs the periodic aggregation of recent dates so the stored
// signals stay fresh without waiting for an operator to trigger them.
package job

import (
	"context"
	"log/slog"
	"time"

	"biohive/internal/aggregation/models"
	"biohive/pkg/domain"
)

// Aggregator is the subset of the aggregation service the job drives.
type Aggregator interface {
	Aggregate(ctx context.Context, date domain.Date) (*models.AggregatedSignal, error)
}

// Runner re-aggregates yesterday and today on a fixed interval. Yesterday is
// included because nodes routinely submit a day late.
type Runner struct {
	aggregator Aggregator
	interval   time.Duration
	logger     *slog.Logger
	clock      func() time.Time
}

func NewRunner(aggregator Aggregator, interval time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		aggregator: aggregator,
		interval:   interval,
		logger:     logger,
		clock:      time.Now,
	}
}

// Run blocks until ctx is cancelled, aggregating once immediately and then on
// every tick. Failures are logged and retried on the next tick.
func (r *Runner) Run(ctx context.Context) {
	r.logger.Info("aggregation job started", "interval", r.interval.String())
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("aggregation job stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	today := domain.DateOf(r.clock().UTC())
	for _, date := range []domain.Date{today.AddDays(-1), today} {
		if _, err := r.aggregator.Aggregate(ctx, date); err != nil {
			r.logger.ErrorContext(ctx, "scheduled aggregation failed",
				"date", date.String(), "error", err.Error())
		}
	}
}
