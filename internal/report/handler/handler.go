// Package handler exposes the report intake and read endpoints over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"biohive/internal/platform/metrics"
	"biohive/internal/platform/middleware"
	registrymodels "biohive/internal/registry/models"
	"biohive/internal/report/models"
	"biohive/internal/report/service"
	reportstore "biohive/internal/report/store"
	"biohive/internal/transport/http/shared"
	"biohive/pkg/domain"
	dErrors "biohive/pkg/domain-errors"
)

// Service defines the report operations the handler delegates to.
type Service interface {
	Submit(ctx context.Context, nodeID string, date domain.Date, symptoms models.SymptomCounts) (*service.SubmitResult, error)
	NodeHistory(ctx context.Context, nodeID string, filter reportstore.HistoryFilter) ([]*models.SymptomReport, *registrymodels.Node, int, error)
	Flagged(ctx context.Context, minScore int) ([]*models.SymptomReport, error)
	NodesStatus(ctx context.Context) ([]*service.NodeStatus, error)
}

// Handler handles report endpoints.
type Handler struct {
	logger    *slog.Logger
	reports   Service
	metrics   *metrics.Metrics
	validator middleware.TokenValidator
}

func New(reports Service, logger *slog.Logger, m *metrics.Metrics, validator middleware.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		reports:   reports,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the report routes with the chi router. Submission
// requires node authentication; the read views do not.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(router chi.Router) {
		router.Use(middleware.Recovery(h.logger))
		router.Use(middleware.RequestID)
		router.Use(middleware.Logger(h.logger))
		router.Use(middleware.Timeout(30 * time.Second))
		router.Use(middleware.LatencyMiddleware(h.metrics))

		router.Group(func(auth chi.Router) {
			auth.Use(middleware.ContentTypeJSON)
			auth.Use(middleware.RequireNodeAuth(h.validator, h.logger))
			auth.Post("/report", h.handleSubmitReport)
		})
		router.Get("/node/{nodeID}/history", h.handleNodeHistory)
		router.Get("/nodes/status", h.handleNodesStatus)
		router.Get("/reports/flagged", h.handleFlaggedReports)
	})
}

func (h *Handler) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	nodeID := middleware.GetNodeID(ctx)
	if nodeID == "" {
		h.logger.ErrorContext(ctx, "node ID missing from context despite auth middleware",
			"request_id", requestID,
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid report submission",
			"request_id", requestID,
			"error", err.Error(),
		)
		// A wrong-typed field, a fractional symptom count for instance, is a
		// validation failure on that field, not a malformed body.
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			shared.WriteError(w, dErrors.Validation(typeErr.Field,
				typeErr.Field+" must be of type "+typeErr.Type.String(), typeErr.Value))
			return
		}
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	date, symptoms, err := req.parse(nodeID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.reports.Submit(ctx, nodeID, date, symptoms)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "failed to submit report",
				"request_id", requestID,
				"node_id", nodeID,
				"error", err.Error(),
			)
			shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to submit report"))
			return
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toSubmitResponse(result))
}

func (h *Handler) handleNodeHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nodeID := chi.URLParam(r, "nodeID")

	filter, err := parseHistoryFilter(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reports, node, total, err := h.reports.NodeHistory(ctx, nodeID, filter)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load node history")
		return
	}

	shared.WriteJSON(w, http.StatusOK, nodeHistoryResponse{
		NodeID:       node.NodeID,
		NodeName:     node.Name,
		TotalReports: total,
		Reports:      toReportResponses(reports),
	})
}

func (h *Handler) handleNodesStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statuses, err := h.reports.NodesStatus(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load node statuses")
		return
	}

	nodes := make([]nodeStatusResponse, 0, len(statuses))
	for _, status := range statuses {
		nodes = append(nodes, toNodeStatusResponse(status))
	}
	shared.WriteJSON(w, http.StatusOK, nodesStatusResponse{Count: len(nodes), Nodes: nodes})
}

func (h *Handler) handleFlaggedReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	minScore := 0
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			shared.WriteError(w, dErrors.Validation("min_score", "min_score must be a non-negative integer", raw))
			return
		}
		minScore = parsed
	}

	reports, err := h.reports.Flagged(ctx, minScore)
	if err != nil {
		h.writeServiceError(ctx, w, err, "failed to load flagged reports")
		return
	}

	shared.WriteJSON(w, http.StatusOK, flaggedReportsResponse{
		Count:   len(reports),
		Reports: toReportResponses(reports),
	})
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

func parseHistoryFilter(r *http.Request) (reportstore.HistoryFilter, error) {
	var filter reportstore.HistoryFilter
	query := r.URL.Query()

	if raw := query.Get("from"); raw != "" {
		from, err := domain.ParseDate(raw)
		if err != nil {
			return filter, dErrors.Validation("from", "from must be formatted YYYY-MM-DD", raw)
		}
		filter.From = &from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := domain.ParseDate(raw)
		if err != nil {
			return filter, dErrors.Validation("to", "to must be formatted YYYY-MM-DD", raw)
		}
		filter.To = &to
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filter, dErrors.Validation("limit", "limit must be a positive integer", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}
