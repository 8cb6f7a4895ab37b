//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	registrymodels "biohive/internal/registry/models"
	registrystore "biohive/internal/registry/store"
	"biohive/internal/report/models"
	"biohive/internal/report/store"
	"biohive/pkg/domain"
	"biohive/pkg/platform/sentinel"
	"biohive/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	nodes    *registrystore.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.nodes = registrystore.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	// Truncate in dependency order
	err := s.postgres.TruncateTables(ctx, "audit_trail", "daily_reports", "nodes")
	s.Require().NoError(err)

	err = s.nodes.Create(ctx, &registrymodels.Node{
		NodeID:    "clinic_1",
		Name:      "Clinic Alpha",
		Status:    registrymodels.NodeStatusActive,
		CreatedAt: time.Now().UTC(),
	})
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) date(value string) domain.Date {
	d, err := domain.ParseDate(value)
	s.Require().NoError(err)
	return d
}

func newTestReport(nodeID string, date domain.Date) *models.SymptomReport {
	return &models.SymptomReport{
		ReportID:    uuid.NewString(),
		NodeID:      nodeID,
		Date:        date,
		Symptoms:    models.SymptomCounts{Fever: 5, Cough: 3, GI: 1},
		SubmittedAt: time.Now().UTC(),
	}
}

func (s *PostgresStoreSuite) TestInsertAndRoundTrip() {
	ctx := context.Background()
	report := newTestReport("clinic_1", s.date("2026-03-16"))
	s.Require().NoError(s.store.Insert(ctx, report))

	found, err := s.store.FindByID(ctx, report.ReportID)
	s.Require().NoError(err)
	s.Equal(report.Symptoms, found.Symptoms)
	s.Equal(report.Date, found.Date)

	byKey, err := s.store.FindByNodeAndDate(ctx, "clinic_1", report.Date)
	s.Require().NoError(err)
	s.Equal(report.ReportID, byKey.ReportID)
}

// TestConcurrentDuplicateSubmission verifies the unique (node_id, date)
// constraint lets exactly one of many racing submissions through.
func (s *PostgresStoreSuite) TestConcurrentDuplicateSubmission() {
	ctx := context.Background()
	date := s.date("2026-03-16")
	const goroutines = 20

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := s.store.Insert(ctx, newTestReport("clinic_1", date))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one insert should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should conflict")

	count, err := s.store.CountByNode(ctx, "clinic_1")
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresStoreSuite) TestHistoryFilters() {
	ctx := context.Background()
	for _, day := range []string{"2026-03-10", "2026-03-12", "2026-03-14", "2026-03-16"} {
		s.Require().NoError(s.store.Insert(ctx, newTestReport("clinic_1", s.date(day))))
	}

	all, err := s.store.ListByNode(ctx, "clinic_1", store.HistoryFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Equal(s.date("2026-03-16"), all[0].Date)

	from := s.date("2026-03-12")
	to := s.date("2026-03-14")
	bounded, err := s.store.ListByNode(ctx, "clinic_1", store.HistoryFilter{From: &from, To: &to})
	s.Require().NoError(err)
	s.Len(bounded, 2)

	limited, err := s.store.ListByNode(ctx, "clinic_1", store.HistoryFilter{Limit: 1})
	s.Require().NoError(err)
	s.Require().Len(limited, 1)
	s.Equal(s.date("2026-03-16"), limited[0].Date)
}

func (s *PostgresStoreSuite) TestFlaggedOrdering() {
	ctx := context.Background()

	low := newTestReport("clinic_1", s.date("2026-03-15"))
	low.SuspicionScore = 17
	low.RequiresReview = true
	high := newTestReport("clinic_1", s.date("2026-03-16"))
	high.SuspicionScore = 44
	high.RequiresReview = true
	for _, r := range []*models.SymptomReport{low, high} {
		s.Require().NoError(s.store.Insert(ctx, r))
	}

	flagged, err := s.store.ListFlagged(ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(flagged, 2)
	s.Equal(high.ReportID, flagged[0].ReportID)

	flagged, err = s.store.ListFlagged(ctx, 20)
	s.Require().NoError(err)
	s.Require().Len(flagged, 1)
}

func (s *PostgresStoreSuite) TestNotFoundError() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, uuid.NewString())
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByNodeAndDate(ctx, "clinic_1", s.date("2026-01-01"))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.LatestByNode(ctx, "clinic_1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
