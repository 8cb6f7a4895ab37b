// Package handler exposes the aggregation operations over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"biohive/internal/aggregation/models"
	"biohive/internal/platform/metrics"
	"biohive/internal/platform/middleware"
	"biohive/internal/transport/http/shared"
	"biohive/pkg/domain"
	dErrors "biohive/pkg/domain-errors"
)

// Service defines the aggregation operations the handler delegates to.
type Service interface {
	Aggregate(ctx context.Context, date domain.Date) (*models.AggregatedSignal, error)
	AggregateRange(ctx context.Context, from, to domain.Date) (map[string]models.RangeOutcome, error)
	GetAggregated(ctx context.Context, date domain.Date) (*models.AggregatedSignal, error)
}

type aggregateRangeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type aggregateRangeResponse struct {
	Results map[string]models.RangeOutcome `json:"results"`
}

// Handler handles aggregation endpoints.
type Handler struct {
	logger      *slog.Logger
	aggregation Service
	metrics     *metrics.Metrics
}

func New(aggregation Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		logger:      logger,
		aggregation: aggregation,
		metrics:     m,
	}
}

// Register registers the aggregation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(60 * time.Second))
		router.Use(middleware.LatencyMiddleware(h.metrics))

		router.Post("/aggregate/{date}", h.handleAggregate)
		router.Post("/aggregate/range", h.handleAggregateRange)
		router.Get("/aggregate/{date}", h.handleGetAggregated)
	})
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, ok := h.parseDate(w, chi.URLParam(r, "date"), "date")
	if !ok {
		return
	}
	signal, err := h.aggregation.Aggregate(ctx, date)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to aggregate date")
		return
	}
	shared.WriteJSON(w, http.StatusOK, signal)
}

func (h *Handler) handleAggregateRange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req aggregateRangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	from, ok := h.parseDate(w, req.StartDate, "start_date")
	if !ok {
		return
	}
	to, ok := h.parseDate(w, req.EndDate, "end_date")
	if !ok {
		return
	}

	results, err := h.aggregation.AggregateRange(ctx, from, to)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to aggregate range")
		return
	}
	shared.WriteJSON(w, http.StatusOK, aggregateRangeResponse{Results: results})
}

func (h *Handler) handleGetAggregated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, ok := h.parseDate(w, chi.URLParam(r, "date"), "date")
	if !ok {
		return
	}
	signal, err := h.aggregation.GetAggregated(ctx, date)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load aggregated signal")
		return
	}
	shared.WriteJSON(w, http.StatusOK, signal)
}

func (h *Handler) parseDate(w http.ResponseWriter, raw, field string) (domain.Date, bool) {
	date, err := domain.ParseDate(raw)
	if err != nil {
		shared.WriteError(w, dErrors.Validation(field, field+" must be formatted YYYY-MM-DD", raw))
		return domain.Date{}, false
	}
	return date, true
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
