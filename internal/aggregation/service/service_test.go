package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biohive/internal/aggregation/cache"
	"biohive/internal/aggregation/config"
	"biohive/internal/aggregation/models"
	"biohive/internal/aggregation/publisher"
	signalstore "biohive/internal/aggregation/store"
	"biohive/internal/platform/metrics"
	reportmodels "biohive/internal/report/models"
	reportstore "biohive/internal/report/store"
	"biohive/pkg/domain"
	dErrors "biohive/pkg/domain-errors"
)

type aggregationFixture struct {
	svc       *Service
	reports   *reportstore.InMemory
	signals   *signalstore.InMemory
	publisher *publisher.InMemory
	now       time.Time
}

func newAggregationFixture(t *testing.T) *aggregationFixture {
	t.Helper()
	reports := reportstore.NewInMemory()
	signals := signalstore.NewInMemory()
	pub := publisher.NewInMemory()
	now := time.Date(2026, time.March, 16, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())
	signalCache := cache.New(nil, time.Minute, logger)

	svc := New(config.DefaultConfig(), reports, signals, signalCache, pub, logger, m,
		WithClock(func() time.Time { return now }))
	return &aggregationFixture{svc: svc, reports: reports, signals: signals, publisher: pub, now: now}
}

func (f *aggregationFixture) seedReport(t *testing.T, nodeID string, date domain.Date, counts reportmodels.SymptomCounts) {
	t.Helper()
	err := f.reports.Insert(context.Background(), &reportmodels.SymptomReport{
		ReportID:    uuid.NewString(),
		NodeID:      nodeID,
		Date:        date,
		Symptoms:    counts,
		SubmittedAt: f.now,
	})
	require.NoError(t, err)
}

func mustDate(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestAggregateModerateOutbreak(t *testing.T) {
	f := newAggregationFixture(t)
	date := mustDate(t, "2026-03-16")

	// Totals across nodes: fever=200, cough=100, gi=20.
	f.seedReport(t, "clinic_1", date, reportmodels.SymptomCounts{Fever: 80, Cough: 40, GI: 5})
	f.seedReport(t, "clinic_2", date, reportmodels.SymptomCounts{Fever: 60, Cough: 30, GI: 5})
	f.seedReport(t, "clinic_3", date, reportmodels.SymptomCounts{Fever: 40, Cough: 20, GI: 5})
	f.seedReport(t, "clinic_4", date, reportmodels.SymptomCounts{Fever: 20, Cough: 10, GI: 5})

	signal, err := f.svc.Aggregate(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, 200, signal.TotalFever)
	assert.Equal(t, 100, signal.TotalCough)
	assert.Equal(t, 20, signal.TotalGI)
	assert.Equal(t, 4, signal.ParticipatingNodes)
	// fever 20 + cough 8 + gi 0 + total(320) 3
	assert.Equal(t, 31.0, signal.RiskScore)
	assert.Equal(t, models.RiskModerate, signal.RiskLevel)
	assert.False(t, signal.AnomalyDetected)
}

func TestAggregateEmptyDate(t *testing.T) {
	f := newAggregationFixture(t)

	signal, err := f.svc.Aggregate(context.Background(), mustDate(t, "2026-03-10"))
	require.NoError(t, err)

	assert.Zero(t, signal.TotalFever)
	assert.Zero(t, signal.ParticipatingNodes)
	assert.Equal(t, 0.0, signal.RiskScore)
	assert.Equal(t, models.RiskLow, signal.RiskLevel)
}

func TestAggregateFutureDateRejected(t *testing.T) {
	f := newAggregationFixture(t)

	_, err := f.svc.Aggregate(context.Background(), mustDate(t, "2026-03-17"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestAggregateIdempotent(t *testing.T) {
	f := newAggregationFixture(t)
	date := mustDate(t, "2026-03-16")
	f.seedReport(t, "clinic_1", date, reportmodels.SymptomCounts{Fever: 80, Cough: 40, GI: 5})

	first, err := f.svc.Aggregate(context.Background(), date)
	require.NoError(t, err)
	second, err := f.svc.Aggregate(context.Background(), date)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	stored, err := f.signals.FindByDate(context.Background(), date)
	require.NoError(t, err)
	assert.Equal(t, first, stored)
}

func TestAggregateHighRisk(t *testing.T) {
	f := newAggregationFixture(t)
	date := mustDate(t, "2026-03-16")
	f.seedReport(t, "clinic_1", date, reportmodels.SymptomCounts{Fever: 300, Cough: 400, GI: 200})

	signal, err := f.svc.Aggregate(context.Background(), date)
	require.NoError(t, err)

	// 35 + 30 + 20 + 15, clamped at 100.
	assert.Equal(t, 100.0, signal.RiskScore)
	assert.Equal(t, models.RiskHigh, signal.RiskLevel)
}

func TestAggregatePublishesSignal(t *testing.T) {
	f := newAggregationFixture(t)
	date := mustDate(t, "2026-03-16")
	f.seedReport(t, "clinic_1", date, reportmodels.SymptomCounts{Fever: 10})

	signal, err := f.svc.Aggregate(context.Background(), date)
	require.NoError(t, err)

	published := f.publisher.Published()
	require.Len(t, published, 1)
	assert.Equal(t, signal, published[0])
}

func TestAggregateRangePartialFailure(t *testing.T) {
	f := newAggregationFixture(t)
	from := mustDate(t, "2026-03-14")
	f.seedReport(t, "clinic_1", from, reportmodels.SymptomCounts{Fever: 10})

	// 2026-03-17 is in the future relative to the fixture clock.
	results, err := f.svc.AggregateRange(context.Background(), from, mustDate(t, "2026-03-17"))
	require.NoError(t, err)
	require.Len(t, results, 4)

	for _, day := range []string{"2026-03-14", "2026-03-15", "2026-03-16"} {
		outcome := results[day]
		require.NotNil(t, outcome.Signal, "expected signal for %s", day)
		assert.Empty(t, outcome.Error)
	}
	failed := results["2026-03-17"]
	assert.Nil(t, failed.Signal)
	assert.Contains(t, failed.Error, "future")
}

func TestAggregateRangeInvalidBounds(t *testing.T) {
	f := newAggregationFixture(t)

	_, err := f.svc.AggregateRange(context.Background(),
		mustDate(t, "2026-03-16"), mustDate(t, "2026-03-14"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestGetAggregated(t *testing.T) {
	f := newAggregationFixture(t)
	ctx := context.Background()
	date := mustDate(t, "2026-03-16")

	_, err := f.svc.GetAggregated(ctx, date)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))

	f.seedReport(t, "clinic_1", date, reportmodels.SymptomCounts{Fever: 10})
	computed, err := f.svc.Aggregate(ctx, date)
	require.NoError(t, err)

	fetched, err := f.svc.GetAggregated(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, computed, fetched)
}

func TestRiskBandsBoundaries(t *testing.T) {
	f := newAggregationFixture(t)
	date := mustDate(t, "2026-03-16")

	tests := []struct {
		fever int
		score float64
	}{
		{49, 0},
		{50, 10},
		{150, 20 + 3}, // total 150 also crosses the combined low band
		{300, 35 + 3},
	}
	for i, tc := range tests {
		nodeID := fmt.Sprintf("clinic_%d", i)
		day := date.AddDays(-i)
		f.seedReport(t, nodeID, day, reportmodels.SymptomCounts{Fever: tc.fever})

		signal, err := f.svc.Aggregate(context.Background(), day)
		require.NoError(t, err)
		assert.Equal(t, tc.score, signal.RiskScore, "fever=%d", tc.fever)
	}
}
