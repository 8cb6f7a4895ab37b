// Package service implements the tamper-evident audit chain: deterministic
// report fingerprints, ordered hash-chained appends, and entry/chain
// verification. The ledger detects tampering after storage; it never repairs
// a broken chain.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	ledgermodels "biohive/internal/ledger/models"
	ledgerstore "biohive/internal/ledger/store"
	"biohive/internal/platform/metrics"
	reportstore "biohive/internal/report/store"
	dErrors "biohive/pkg/domain-errors"
	"biohive/pkg/platform/sentinel"
)

// AppendTail links a new entry to the current chain tail and persists it.
// The caller must run this inside the same transaction as the report insert:
// both commit or both roll back, and the tail read must be isolated from
// concurrent appends (see store.Store).
func AppendTail(ctx context.Context, entries ledgerstore.Store, reportID, digest string, now time.Time) (*ledgermodels.Entry, error) {
	last, err := entries.Last(ctx)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("read chain tail: %w", err)
	}

	entry := &ledgermodels.Entry{
		ID:          uuid.NewString(),
		ReportID:    reportID,
		CurrentHash: digest,
		Position:    1,
		Timestamp:   now,
	}
	if last != nil {
		prev := last.CurrentHash
		entry.PreviousHash = &prev
		entry.Position = last.Position + 1
	}

	if err := entries.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, nil
}

// Service exposes the ledger's read-side: verification, history and
// statistics. Appends happen inside the intake transaction via AppendTail.
type Service struct {
	entries ledgerstore.Store
	reports reportstore.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	clock   func() time.Time
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

func New(entries ledgerstore.Store, reports reportstore.Store, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		entries: entries,
		reports: reports,
		logger:  logger,
		metrics: m,
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// VerifyEntry re-hashes the live report and compares against the stored
// digest. Mismatches and missing data are reported in the result, not as
// errors; only storage faults error.
func (s *Service) VerifyEntry(ctx context.Context, reportID string) (*ledgermodels.EntryVerification, error) {
	entry, err := s.entries.FindByReportID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return &ledgermodels.EntryVerification{
				ReportID: reportID,
				Error:    "no ledger entry found for this report",
			}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load ledger entry")
	}

	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Reports are never deleted in normal operation, so a missing
			// report is itself evidence of tampering, distinct from a hash
			// mismatch.
			ts := entry.Timestamp
			return &ledgermodels.EntryVerification{
				ReportID:   reportID,
				StoredHash: entry.CurrentHash,
				Timestamp:  &ts,
				Error:      "report missing from store (possible deletion)",
			}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load report")
	}

	recomputed := FingerprintReport(report)
	ts := entry.Timestamp
	result := &ledgermodels.EntryVerification{
		Valid:          entry.CurrentHash == recomputed,
		ReportID:       reportID,
		StoredHash:     entry.CurrentHash,
		RecomputedHash: recomputed,
		Timestamp:      &ts,
	}
	if !result.Valid {
		result.Error = "hash mismatch - report data has been tampered with"
		s.logger.WarnContext(ctx, "report failed integrity verification",
			"report_id", reportID,
			"stored_hash", entry.CurrentHash,
			"recomputed_hash", recomputed,
		)
	}
	return result, nil
}

// VerifyChain walks every entry in order and checks each link to its
// predecessor. An empty chain is valid. Every violation is recorded;
// ChainIntegrity is reported even when the chain is broken.
func (s *Service) VerifyChain(ctx context.Context) (*ledgermodels.ChainVerification, error) {
	entries, err := s.entries.ListOrdered(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list ledger entries")
	}

	result := &ledgermodels.ChainVerification{
		Valid:          true,
		TotalEntries:   len(entries),
		BrokenLinks:    []ledgermodels.BrokenLink{},
		ChainIntegrity: 1.0,
	}
	if len(entries) == 0 {
		return result, nil
	}

	for i, entry := range entries {
		if i == 0 {
			if entry.PreviousHash == nil {
				result.VerifiedEntries++
			} else {
				result.BrokenLinks = append(result.BrokenLinks, ledgermodels.BrokenLink{
					Position:       entry.Position,
					EntryID:        entry.ID,
					ReportID:       entry.ReportID,
					Timestamp:      entry.Timestamp,
					Error:          "first entry should have null previous_hash",
					ExpectedHash:   nil,
					ActualHash:     entry.PreviousHash,
					Classification: "possible insertion or reorder before first entry",
				})
			}
			continue
		}

		prior := entries[i-1]
		if entry.PreviousHash != nil && *entry.PreviousHash == prior.CurrentHash {
			result.VerifiedEntries++
			continue
		}
		expected := prior.CurrentHash
		result.BrokenLinks = append(result.BrokenLinks, ledgermodels.BrokenLink{
			Position:       entry.Position,
			EntryID:        entry.ID,
			ReportID:       entry.ReportID,
			Timestamp:      entry.Timestamp,
			Error:          "chain link broken - previous_hash mismatch",
			ExpectedHash:   &expected,
			ActualHash:     entry.PreviousHash,
			Classification: "possible insertion, deletion or reorder",
		})
	}

	result.Valid = len(result.BrokenLinks) == 0
	integrity := float64(result.VerifiedEntries) / float64(result.TotalEntries)
	result.ChainIntegrity = math.Round(integrity*10000) / 10000
	if !result.Valid {
		result.Error = fmt.Sprintf("chain compromised: %d broken link(s) detected", len(result.BrokenLinks))
	}

	outcome := "valid"
	if !result.Valid {
		outcome = "broken"
		s.logger.ErrorContext(ctx, "audit chain verification failed",
			"total_entries", result.TotalEntries,
			"broken_links", len(result.BrokenLinks),
			"chain_integrity", result.ChainIntegrity,
		)
	}
	s.metrics.ChainVerifications.WithLabelValues(outcome).Inc()
	return result, nil
}

// History returns the full audit view for one report: its entry, its
// verification status, and where it sits in the chain.
func (s *Service) History(ctx context.Context, reportID string) (*ledgermodels.History, error) {
	entry, err := s.entries.FindByReportID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "no ledger entry for report %s", reportID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load ledger entry")
	}

	verification, err := s.VerifyEntry(ctx, reportID)
	if err != nil {
		return nil, err
	}

	total, err := s.entries.Count(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count ledger entries")
	}

	return &ledgermodels.History{
		ReportID:     reportID,
		Entry:        entry,
		Verification: verification,
		ChainContext: &ledgermodels.ChainContext{
			TotalChainLength: total,
			PositionInChain:  entry.Position,
			EntriesAfter:     total - int(entry.Position),
		},
	}, nil
}

// Statistics summarizes the chain: size, age span and health. Health runs a
// full chain verification, so this is a read-heavy call on large chains.
func (s *Service) Statistics(ctx context.Context) (*ledgermodels.Statistics, error) {
	entries, err := s.entries.ListOrdered(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list ledger entries")
	}

	stats := &ledgermodels.Statistics{
		TotalEntries:     len(entries),
		Health:           ledgermodels.ChainEmpty,
		ChainIntegrity:   1.0,
		LastVerification: s.clock().UTC(),
	}
	if len(entries) == 0 {
		return stats, nil
	}

	oldest := entries[0].Timestamp
	newest := entries[len(entries)-1].Timestamp
	stats.OldestEntry = &oldest
	stats.NewestEntry = &newest

	verification, err := s.VerifyChain(ctx)
	if err != nil {
		return nil, err
	}
	stats.ChainIntegrity = verification.ChainIntegrity
	if verification.Valid {
		stats.Health = ledgermodels.ChainHealthy
	} else {
		stats.Health = ledgermodels.ChainCompromised
	}
	return stats, nil
}
