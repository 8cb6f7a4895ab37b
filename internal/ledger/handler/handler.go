// Package handler exposes the audit ledger's verification endpoints.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"biohive/internal/ledger/models"
	"biohive/internal/platform/metrics"
	"biohive/internal/platform/middleware"
	"biohive/internal/transport/http/shared"
	dErrors "biohive/pkg/domain-errors"
)

// Service defines the ledger operations the handler delegates to.
type Service interface {
	VerifyEntry(ctx context.Context, reportID string) (*models.EntryVerification, error)
	VerifyChain(ctx context.Context) (*models.ChainVerification, error)
	History(ctx context.Context, reportID string) (*models.History, error)
	Statistics(ctx context.Context) (*models.Statistics, error)
}

// Handler handles audit endpoints. Verification results are plain responses:
// a tampered report is a 200 with valid=false, never an error status.
type Handler struct {
	logger  *slog.Logger
	ledger  Service
	metrics *metrics.Metrics
}

func New(ledger Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		ledger:  ledger,
		metrics: m,
	}
}

// Register registers the audit routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(60 * time.Second))
		router.Use(middleware.LatencyMiddleware(h.metrics))

		router.Get("/audit/verify/{reportID}", h.handleVerifyEntry)
		router.Get("/audit/verify-chain", h.handleVerifyChain)
		router.Get("/audit/history/{reportID}", h.handleHistory)
		router.Get("/audit/statistics", h.handleStatistics)
	})
}

func (h *Handler) handleVerifyEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "reportID")

	result, err := h.ledger.VerifyEntry(ctx, reportID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to verify report")
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleVerifyChain(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := h.ledger.VerifyChain(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to verify audit chain")
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reportID := chi.URLParam(r, "reportID")

	history, err := h.ledger.History(ctx, reportID)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load audit history")
		return
	}
	shared.WriteJSON(w, http.StatusOK, history)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.ledger.Statistics(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load ledger statistics")
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error, msg string) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
		return
	}
	shared.WriteError(w, err)
}
