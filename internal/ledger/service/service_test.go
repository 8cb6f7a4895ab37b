package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgermodels "biohive/internal/ledger/models"
	ledgerstore "biohive/internal/ledger/store"
	"biohive/internal/platform/metrics"
	"biohive/internal/report/models"
	reportstore "biohive/internal/report/store"
	"biohive/pkg/domain"
)

var hexDigest = regexp.MustCompile(`^[0-9a-f]{64}$`)

func testDate(t *testing.T) domain.Date {
	t.Helper()
	d, err := domain.ParseDate("2026-03-16")
	require.NoError(t, err)
	return d
}

func TestFingerprintDeterministic(t *testing.T) {
	date := testDate(t)
	counts := models.SymptomCounts{Fever: 5, Cough: 8, GI: 3}

	first := Fingerprint("report-1", "clinic_1", date, counts)
	second := Fingerprint("report-1", "clinic_1", date, counts)

	assert.Equal(t, first, second)
	assert.Regexp(t, hexDigest, first)
}

func TestFingerprintSensitiveToEveryField(t *testing.T) {
	date := testDate(t)
	counts := models.SymptomCounts{Fever: 5, Cough: 8, GI: 3}
	base := Fingerprint("report-1", "clinic_1", date, counts)

	variants := []string{
		Fingerprint("report-2", "clinic_1", date, counts),
		Fingerprint("report-1", "clinic_2", date, counts),
		Fingerprint("report-1", "clinic_1", date.AddDays(1), counts),
		Fingerprint("report-1", "clinic_1", date, models.SymptomCounts{Fever: 6, Cough: 8, GI: 3}),
		Fingerprint("report-1", "clinic_1", date, models.SymptomCounts{Fever: 5, Cough: 9, GI: 3}),
		Fingerprint("report-1", "clinic_1", date, models.SymptomCounts{Fever: 5, Cough: 8, GI: 4}),
	}
	for i, digest := range variants {
		assert.NotEqual(t, base, digest, "variant %d should change the digest", i)
	}
}

type ledgerFixture struct {
	svc     *Service
	entries *ledgerstore.InMemory
	reports *reportstore.InMemory
	now     time.Time
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	entries := ledgerstore.NewInMemory()
	reports := reportstore.NewInMemory()
	now := time.Date(2026, time.March, 16, 12, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewWith(prometheus.NewRegistry())
	svc := New(entries, reports, logger, m, WithClock(func() time.Time { return now }))
	return &ledgerFixture{svc: svc, entries: entries, reports: reports, now: now}
}

// appendReport stores a report and chains its fingerprint, the way intake
// does inside its transaction.
func (f *ledgerFixture) appendReport(t *testing.T, nodeID string, date domain.Date, counts models.SymptomCounts) *models.SymptomReport {
	t.Helper()
	ctx := context.Background()
	report := &models.SymptomReport{
		ReportID:    uuid.NewString(),
		NodeID:      nodeID,
		Date:        date,
		Symptoms:    counts,
		SubmittedAt: f.now,
	}
	require.NoError(t, f.reports.Insert(ctx, report))
	digest := FingerprintReport(report)
	_, err := AppendTail(ctx, f.entries, report.ReportID, digest, f.now)
	require.NoError(t, err)
	return report
}

func TestVerifyEntryValid(t *testing.T) {
	f := newLedgerFixture(t)
	report := f.appendReport(t, "clinic_1", testDate(t), models.SymptomCounts{Fever: 5, Cough: 8, GI: 3})

	result, err := f.svc.VerifyEntry(context.Background(), report.ReportID)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, result.StoredHash, result.RecomputedHash)
	assert.Empty(t, result.Error)
}

func TestVerifyEntryDetectsTamperedReport(t *testing.T) {
	f := newLedgerFixture(t)
	report := f.appendReport(t, "clinic_1", testDate(t), models.SymptomCounts{Fever: 5, Cough: 8, GI: 3})

	require.True(t, f.reports.Tamper(report.ReportID, models.SymptomCounts{Fever: 50, Cough: 8, GI: 3}))

	result, err := f.svc.VerifyEntry(context.Background(), report.ReportID)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.NotEqual(t, result.StoredHash, result.RecomputedHash)
	assert.Contains(t, result.Error, "tampered")
}

func TestVerifyEntryMissingReportIsDistinct(t *testing.T) {
	f := newLedgerFixture(t)
	// Entry without a matching report simulates out-of-band deletion.
	_, err := AppendTail(context.Background(), f.entries, "ghost-report", "deadbeef", f.now)
	require.NoError(t, err)

	result, err := f.svc.VerifyEntry(context.Background(), "ghost-report")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "missing")
	assert.Empty(t, result.RecomputedHash)
}

func TestVerifyEntryNoLedgerEntry(t *testing.T) {
	f := newLedgerFixture(t)

	result, err := f.svc.VerifyEntry(context.Background(), "never-chained")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Error, "no ledger entry")
}

func TestVerifyChainEmptyIsValid(t *testing.T) {
	f := newLedgerFixture(t)

	result, err := f.svc.VerifyChain(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 0, result.TotalEntries)
	assert.Equal(t, 1.0, result.ChainIntegrity)
}

func TestVerifyChainSequentialAppends(t *testing.T) {
	f := newLedgerFixture(t)
	date := testDate(t)
	for i := 0; i < 10; i++ {
		f.appendReport(t, fmt.Sprintf("clinic_%d", i), date, models.SymptomCounts{Fever: i})
	}

	result, err := f.svc.VerifyChain(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 10, result.TotalEntries)
	assert.Equal(t, 10, result.VerifiedEntries)
	assert.Empty(t, result.BrokenLinks)
	assert.Equal(t, 1.0, result.ChainIntegrity)
}

func TestVerifyChainDetectsRemovedEntry(t *testing.T) {
	f := newLedgerFixture(t)
	date := testDate(t)
	for i := 0; i < 5; i++ {
		f.appendReport(t, fmt.Sprintf("clinic_%d", i), date, models.SymptomCounts{Fever: i})
	}
	require.True(t, f.entries.RemoveAt(2))

	result, err := f.svc.VerifyChain(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.BrokenLinks, 1)
	assert.Equal(t, int64(4), result.BrokenLinks[0].Position)
	assert.Equal(t, 0.75, result.ChainIntegrity)
	assert.Contains(t, result.Error, "1 broken link")
}

func TestVerifyChainDetectsForgedFirstEntry(t *testing.T) {
	f := newLedgerFixture(t)
	prev := "deadbeef"
	err := f.entries.Insert(context.Background(), &ledgermodels.Entry{
		ID:           uuid.NewString(),
		ReportID:     "forged",
		CurrentHash:  "cafef00d",
		PreviousHash: &prev,
		Position:     1,
		Timestamp:    f.now,
	})
	require.NoError(t, err)

	result, err := f.svc.VerifyChain(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.BrokenLinks, 1)
	assert.Equal(t, int64(1), result.BrokenLinks[0].Position)
}

func TestHistory(t *testing.T) {
	f := newLedgerFixture(t)
	date := testDate(t)
	first := f.appendReport(t, "clinic_1", date, models.SymptomCounts{Fever: 1})
	f.appendReport(t, "clinic_2", date, models.SymptomCounts{Fever: 2})
	f.appendReport(t, "clinic_3", date, models.SymptomCounts{Fever: 3})

	history, err := f.svc.History(context.Background(), first.ReportID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), history.Entry.Position)
	assert.True(t, history.Verification.Valid)
	assert.Equal(t, 3, history.ChainContext.TotalChainLength)
	assert.Equal(t, 2, history.ChainContext.EntriesAfter)
}

func TestStatistics(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	stats, err := f.svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledgermodels.ChainEmpty, stats.Health)

	date := testDate(t)
	f.appendReport(t, "clinic_1", date, models.SymptomCounts{Fever: 1})
	f.appendReport(t, "clinic_2", date, models.SymptomCounts{Fever: 2})

	stats, err = f.svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledgermodels.ChainHealthy, stats.Health)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1.0, stats.ChainIntegrity)

	require.True(t, f.entries.RemoveAt(0))
	stats, err = f.svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledgermodels.ChainCompromised, stats.Health)
}
