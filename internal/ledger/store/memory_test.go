package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"biohive/internal/ledger/models"
	"biohive/pkg/platform/sentinel"
)

type LedgerStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *LedgerStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestLedgerStoreSuite(t *testing.T) {
	suite.Run(t, new(LedgerStoreSuite))
}

func (s *LedgerStoreSuite) newEntry(reportID string, position int64, previous *string) *models.Entry {
	return &models.Entry{
		ID:           uuid.NewString(),
		ReportID:     reportID,
		CurrentHash:  "hash-" + reportID,
		PreviousHash: previous,
		Position:     position,
		Timestamp:    time.Date(2026, time.March, 16, 12, 0, 0, 0, time.UTC),
	}
}

func (s *LedgerStoreSuite) TestEmptyChain() {
	_, err := s.store.Last(s.ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *LedgerStoreSuite) TestAppendAndLast() {
	first := s.newEntry("report-1", 1, nil)
	s.Require().NoError(s.store.Insert(s.ctx, first))

	prev := first.CurrentHash
	second := s.newEntry("report-2", 2, &prev)
	s.Require().NoError(s.store.Insert(s.ctx, second))

	last, err := s.store.Last(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), last.Position)
	s.Equal(second.CurrentHash, last.CurrentHash)
}

func (s *LedgerStoreSuite) TestPositionConflict() {
	s.Require().NoError(s.store.Insert(s.ctx, s.newEntry("report-1", 1, nil)))

	// A stale append that reuses the tail position must not fork the chain.
	s.Require().ErrorIs(s.store.Insert(s.ctx, s.newEntry("report-2", 1, nil)), sentinel.ErrConflict)

	count, err := s.store.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *LedgerStoreSuite) TestFindByReportID() {
	entry := s.newEntry("report-1", 1, nil)
	s.Require().NoError(s.store.Insert(s.ctx, entry))

	found, err := s.store.FindByReportID(s.ctx, "report-1")
	s.Require().NoError(err)
	s.Equal(entry.ID, found.ID)

	_, err = s.store.FindByReportID(s.ctx, "report-2")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *LedgerStoreSuite) TestListOrdered() {
	var previous *string
	for i := int64(1); i <= 3; i++ {
		entry := s.newEntry(uuid.NewString(), i, previous)
		s.Require().NoError(s.store.Insert(s.ctx, entry))
		hash := entry.CurrentHash
		previous = &hash
	}

	entries, err := s.store.ListOrdered(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	for i, entry := range entries {
		s.Equal(int64(i+1), entry.Position)
	}
}

func (s *LedgerStoreSuite) TestRemoveAt() {
	for i := int64(1); i <= 3; i++ {
		s.Require().NoError(s.store.Insert(s.ctx, s.newEntry(uuid.NewString(), i, nil)))
	}

	s.True(s.store.RemoveAt(1))
	s.False(s.store.RemoveAt(5))

	entries, err := s.store.ListOrdered(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(int64(1), entries[0].Position)
	s.Equal(int64(3), entries[1].Position)
}
