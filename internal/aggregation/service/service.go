// Package service rolls daily reports up into system-wide signals with a
// rule-based risk score. Aggregation is deterministic: the same stored
// reports always produce the same signal, so reruns are safe.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"biohive/internal/aggregation/cache"
	"biohive/internal/aggregation/config"
	"biohive/internal/aggregation/models"
	signalstore "biohive/internal/aggregation/store"
	"biohive/internal/platform/metrics"
	reportstore "biohive/internal/report/store"
	"biohive/pkg/domain"
	dErrors "biohive/pkg/domain-errors"
	"biohive/pkg/platform/sentinel"
)

// Publisher emits recomputed signals downstream.
type Publisher interface {
	Publish(ctx context.Context, signal *models.AggregatedSignal) error
}

// Service computes, stores and serves aggregated daily signals.
type Service struct {
	cfg       config.Config
	reports   reportstore.Store
	signals   signalstore.Store
	cache     *cache.Cache
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	clock     func() time.Time

	// rangeConcurrency bounds the fan-out of AggregateRange.
	rangeConcurrency int
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithRangeConcurrency bounds how many dates AggregateRange computes at once.
func WithRangeConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.rangeConcurrency = n
		}
	}
}

func New(cfg config.Config, reports reportstore.Store, signals signalstore.Store,
	signalCache *cache.Cache, pub Publisher, logger *slog.Logger, m *metrics.Metrics,
	opts ...Option) *Service {
	s := &Service{
		cfg:              cfg,
		reports:          reports,
		signals:          signals,
		cache:            signalCache,
		publisher:        pub,
		logger:           logger,
		metrics:          m,
		clock:            time.Now,
		rangeConcurrency: 4,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Aggregate recomputes the signal for one date from whatever reports exist at
// call time and upserts it. There is no completeness signal to wait on: a
// date with no reports aggregates to zeros at LOW risk. Future dates are
// rejected.
func (s *Service) Aggregate(ctx context.Context, date domain.Date) (*models.AggregatedSignal, error) {
	today := domain.DateOf(s.clock().UTC())
	if date.After(today) {
		return nil, dErrors.Validation("date",
			"cannot aggregate future date: "+date.String(), date.String())
	}

	reports, err := s.reports.ListByDate(ctx, date)
	if err != nil {
		s.metrics.AggregationRuns.WithLabelValues("failure").Inc()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list reports for date")
	}

	signal := &models.AggregatedSignal{
		Date:       date,
		RiskLevel:  models.RiskLow,
		ComputedAt: s.clock().UTC(),
	}
	nodes := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		signal.TotalFever += r.Symptoms.Fever
		signal.TotalCough += r.Symptoms.Cough
		signal.TotalGI += r.Symptoms.GI
		nodes[r.NodeID] = struct{}{}
	}
	signal.ParticipatingNodes = len(nodes)
	signal.RiskScore = s.riskScore(signal)
	signal.RiskLevel = s.riskLevel(signal.RiskScore)

	if err := s.signals.Upsert(ctx, signal); err != nil {
		s.metrics.AggregationRuns.WithLabelValues("failure").Inc()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store aggregated signal")
	}
	s.cache.Set(ctx, signal)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, signal); err != nil {
			s.logger.WarnContext(ctx, "signal publish failed",
				"date", date.String(), "error", err.Error())
		}
	}

	s.metrics.AggregationRuns.WithLabelValues("success").Inc()
	s.logger.InfoContext(ctx, "date aggregated",
		"date", date.String(),
		"total_fever", signal.TotalFever,
		"total_cough", signal.TotalCough,
		"total_gi", signal.TotalGI,
		"participating_nodes", signal.ParticipatingNodes,
		"risk_score", signal.RiskScore,
		"risk_level", signal.RiskLevel,
	)
	return signal, nil
}

// AggregateRange aggregates every date in [from, to]. One date's failure is
// recorded against that date and the rest still run.
func (s *Service) AggregateRange(ctx context.Context, from, to domain.Date) (map[string]models.RangeOutcome, error) {
	if from.After(to) {
		return nil, dErrors.Validation("from",
			"start date must not be after end date", from.String())
	}

	results := make(map[string]models.RangeOutcome)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.rangeConcurrency)
	for date := from; !date.After(to); date = date.AddDays(1) {
		g.Go(func() error {
			signal, err := s.Aggregate(ctx, date)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[date.String()] = models.RangeOutcome{Error: err.Error()}
				return nil
			}
			results[date.String()] = models.RangeOutcome{Signal: signal}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// GetAggregated returns the stored signal for date without recomputation,
// reading through the cache.
func (s *Service) GetAggregated(ctx context.Context, date domain.Date) (*models.AggregatedSignal, error) {
	if signal, ok := s.cache.Get(ctx, date); ok {
		return signal, nil
	}
	signal, err := s.signals.FindByDate(ctx, date)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound,
				"no aggregated signal for %s", date)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load aggregated signal")
	}
	s.cache.Set(ctx, signal)
	return signal, nil
}

func (s *Service) riskScore(signal *models.AggregatedSignal) float64 {
	score := s.cfg.Fever.Points(signal.TotalFever) +
		s.cfg.Cough.Points(signal.TotalCough) +
		s.cfg.GI.Points(signal.TotalGI) +
		s.cfg.Total.Points(signal.TotalSymptoms())
	return min(100, max(0, score))
}

func (s *Service) riskLevel(score float64) models.RiskLevel {
	switch {
	case score >= s.cfg.HighLevel:
		return models.RiskHigh
	case score >= s.cfg.ModerateLevel:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}
