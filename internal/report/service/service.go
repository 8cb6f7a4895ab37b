// Package service implements report intake: soft validation with suspicion
// scoring, the transactional insert+ledger-append unit, and the read views
// over accepted reports.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	ledgermodels "biohive/internal/ledger/models"
	ledgerservice "biohive/internal/ledger/service"
	ledgerstore "biohive/internal/ledger/store"
	"biohive/internal/platform/metrics"
	registrymodels "biohive/internal/registry/models"
	registrystore "biohive/internal/registry/store"
	"biohive/internal/report/config"
	"biohive/internal/report/models"
	reportstore "biohive/internal/report/store"
	"biohive/pkg/domain"
	dErrors "biohive/pkg/domain-errors"
	"biohive/pkg/platform/sentinel"
)

// TxStores are the transaction-scoped stores the intake unit writes through.
// Implementations bind all three to the same transaction so the report
// insert, the ledger append and the node touch commit or roll back together.
type TxStores struct {
	Reports reportstore.Store
	Ledger  ledgerstore.Store
	Nodes   registrystore.Store
}

// TxRunner executes fn as one atomic unit of work. fn receives the
// transaction-bound context and must use it for every store call.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores TxStores) error) error
}

// SubmitResult is returned to the caller on acceptance. Warnings annotate but
// never block: any plausible report is accepted.
type SubmitResult struct {
	Report         *models.SymptomReport
	Warnings       []models.Warning
	SuspicionScore int
	RequiresReview bool
	AuditHash      string
	ChainPosition  int64
}

// NodeStatus is one row of the registry overview.
type NodeStatus struct {
	Node           *registrymodels.Node
	TotalReports   int
	FlaggedReports int
	RiskHint       string
}

// Service orchestrates intake and report reads.
type Service struct {
	cfg     config.Config
	reports reportstore.Store
	nodes   registrystore.Store
	runner  TxRunner
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

func New(cfg config.Config, reports reportstore.Store, nodes registrystore.Store, runner TxRunner,
	logger *slog.Logger, m *metrics.Metrics, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		reports: reports,
		nodes:   nodes,
		runner:  runner,
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

// Submit runs the full intake pipeline for one report: node check, soft
// validation, then the atomic insert+append unit. The pre-checks here are
// advisory; the store's unique (node, date) constraint is the authoritative
// duplicate guard, so a race between two submissions surfaces as a conflict
// from inside the transaction and nothing is persisted for the loser.
func (s *Service) Submit(ctx context.Context, nodeID string, date domain.Date, symptoms models.SymptomCounts) (*SubmitResult, error) {
	node, err := s.nodes.FindByID(ctx, nodeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.ReportsRejected.WithLabelValues("unknown_node").Inc()
			return nil, dErrors.Newf(dErrors.CodeNotFound, "node %s does not exist", nodeID).
				WithField("node_id", nodeID)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load node")
	}
	if !node.IsActive() {
		s.metrics.ReportsRejected.WithLabelValues("inactive_node").Inc()
		return nil, dErrors.Newf(dErrors.CodeValidation,
			"node %s is not active (status: %s)", nodeID, node.Status).
			WithField("node_id", nodeID)
	}

	duplicate := true
	if _, err := s.reports.FindByNodeAndDate(ctx, nodeID, date); err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "check for duplicate report")
		}
		duplicate = false
	}

	var previous *models.SymptomCounts
	if prior, err := s.reports.FindByNodeAndDate(ctx, nodeID, date.AddDays(-1)); err == nil {
		counts := prior.Symptoms
		previous = &counts
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load previous-day report")
	}

	outcome, err := Classify(s.cfg, Input{
		NodeID:    nodeID,
		Date:      date,
		Today:     domain.DateOf(s.clock().UTC()),
		Symptoms:  symptoms,
		Previous:  previous,
		Duplicate: duplicate,
	})
	if err != nil {
		s.countRejection(err)
		return nil, err
	}

	now := s.clock().UTC()
	report := &models.SymptomReport{
		ReportID:       uuid.NewString(),
		NodeID:         nodeID,
		Date:           date,
		Symptoms:       symptoms,
		SubmittedAt:    now,
		SuspicionScore: outcome.SuspicionScore,
		RequiresReview: outcome.RequiresReview,
	}
	digest := ledgerservice.Fingerprint(report.ReportID, nodeID, date, symptoms)

	var entry *ledgermodels.Entry
	err = s.runner.RunInTx(ctx, func(txCtx context.Context, stores TxStores) error {
		if err := stores.Reports.Insert(txCtx, report); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Lost the race to a concurrent submission for the same
				// (node, date); the transaction rolls back cleanly.
				return dErrors.Newf(dErrors.CodeConflict,
					"report already exists for %s on %s", nodeID, date).
					WithField("date", date.String())
			}
			return err
		}
		appended, err := ledgerservice.AppendTail(txCtx, stores.Ledger, report.ReportID, digest, now)
		if err != nil {
			return err
		}
		entry = appended
		return stores.Nodes.TouchLastReport(txCtx, nodeID, now)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.ReportsRejected.WithLabelValues("duplicate").Inc()
			return nil, err
		}
		// Anything past the report insert, a ledger or registry fault
		// included, is an internal failure: only the report row's unique
		// (node, date) constraint means duplicate.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "persist report")
	}

	s.metrics.ReportsAccepted.Inc()
	s.metrics.LedgerAppends.Inc()
	if report.RequiresReview {
		s.metrics.ReportsFlagged.Inc()
	}
	s.logger.InfoContext(ctx, "report accepted",
		"report_id", report.ReportID,
		"node_id", nodeID,
		"date", date.String(),
		"suspicion_score", report.SuspicionScore,
		"requires_review", report.RequiresReview,
		"warnings", len(outcome.Warnings),
		"chain_position", entry.Position,
	)

	return &SubmitResult{
		Report:         report,
		Warnings:       outcome.Warnings,
		SuspicionScore: outcome.SuspicionScore,
		RequiresReview: outcome.RequiresReview,
		AuditHash:      digest,
		ChainPosition:  entry.Position,
	}, nil
}

func (s *Service) countRejection(err error) {
	switch {
	case dErrors.HasCode(err, dErrors.CodeConflict):
		s.metrics.ReportsRejected.WithLabelValues("duplicate").Inc()
	case dErrors.HasCode(err, dErrors.CodeValidation):
		s.metrics.ReportsRejected.WithLabelValues("validation").Inc()
	}
}

// NodeHistory returns a node's reports, newest first.
func (s *Service) NodeHistory(ctx context.Context, nodeID string, filter reportstore.HistoryFilter) ([]*models.SymptomReport, *registrymodels.Node, int, error) {
	node, err := s.nodes.FindByID(ctx, nodeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, 0, dErrors.Newf(dErrors.CodeNotFound, "node %s does not exist", nodeID)
		}
		return nil, nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "load node")
	}
	reports, err := s.reports.ListByNode(ctx, nodeID, filter)
	if err != nil {
		return nil, nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "list reports")
	}
	total, err := s.reports.CountByNode(ctx, nodeID)
	if err != nil {
		return nil, nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "count reports")
	}
	return reports, node, total, nil
}

// Flagged returns reports awaiting manual review with at least minScore.
func (s *Service) Flagged(ctx context.Context, minScore int) ([]*models.SymptomReport, error) {
	reports, err := s.reports.ListFlagged(ctx, minScore)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list flagged reports")
	}
	return reports, nil
}

// NodesStatus summarizes every registered node for the operations overview.
// The risk hint grades each node's latest report only; system-wide risk comes
// from the aggregation engine.
func (s *Service) NodesStatus(ctx context.Context) ([]*NodeStatus, error) {
	nodes, err := s.nodes.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list nodes")
	}

	out := make([]*NodeStatus, 0, len(nodes))
	for _, node := range nodes {
		status := &NodeStatus{Node: node, RiskHint: "LOW"}
		if status.TotalReports, err = s.reports.CountByNode(ctx, node.NodeID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count reports")
		}
		if status.FlaggedReports, err = s.reports.CountFlaggedByNode(ctx, node.NodeID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "count flagged reports")
		}
		latest, err := s.reports.LatestByNode(ctx, node.NodeID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load latest report")
		}
		if latest != nil {
			total := latest.Symptoms.Total()
			switch {
			case total > 100 || latest.SuspicionScore >= 20:
				status.RiskHint = "HIGH"
			case total > 50 || latest.SuspicionScore >= 10:
				status.RiskHint = "MODERATE"
			}
		}
		out = append(out, status)
	}
	return out, nil
}
