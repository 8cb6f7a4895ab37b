//go:build integration

package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"biohive/internal/aggregation/cache"
	"biohive/internal/aggregation/models"
	platformredis "biohive/internal/platform/redis"
	"biohive/pkg/domain"
	"biohive/pkg/testutil/containers"
)

type SignalCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.Cache
}

func TestSignalCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SignalCacheSuite))
}

func (s *SignalCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := &platformredis.Client{Client: s.redis.Client}
	s.cache = cache.New(client, time.Minute, logger)
}

func (s *SignalCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *SignalCacheSuite) date(value string) domain.Date {
	d, err := domain.ParseDate(value)
	s.Require().NoError(err)
	return d
}

func (s *SignalCacheSuite) newSignal(date string) *models.AggregatedSignal {
	return &models.AggregatedSignal{
		Date:               s.date(date),
		TotalFever:         55,
		TotalCough:         20,
		TotalGI:            5,
		ParticipatingNodes: 3,
		RiskScore:          10,
		RiskLevel:          models.RiskLow,
		ComputedAt:         time.Now().UTC().Truncate(time.Second),
	}
}

func (s *SignalCacheSuite) TestSetAndGet() {
	ctx := context.Background()
	signal := s.newSignal("2026-03-16")

	_, ok := s.cache.Get(ctx, signal.Date)
	s.False(ok)

	s.cache.Set(ctx, signal)

	cached, ok := s.cache.Get(ctx, signal.Date)
	s.Require().True(ok)
	s.Equal(signal.TotalFever, cached.TotalFever)
	s.Equal(signal.RiskLevel, cached.RiskLevel)
	s.True(signal.ComputedAt.Equal(cached.ComputedAt))
}

func (s *SignalCacheSuite) TestInvalidate() {
	ctx := context.Background()
	signal := s.newSignal("2026-03-16")
	s.cache.Set(ctx, signal)

	s.cache.Invalidate(ctx, signal.Date)

	_, ok := s.cache.Get(ctx, signal.Date)
	s.False(ok)
}

func (s *SignalCacheSuite) TestCorruptEntryIsAMiss() {
	ctx := context.Background()
	date := s.date("2026-03-16")
	s.Require().NoError(s.redis.Client.Set(ctx, "biohive:signal:"+date.String(), "not-json", time.Minute).Err())

	_, ok := s.cache.Get(ctx, date)
	s.False(ok)
}
