package handler

import (
	"time"

	"biohive/internal/report/models"
	"biohive/internal/report/service"
)

type warningResponse struct {
	Severity      string `json:"severity"`
	Subject       string `json:"subject"`
	Value         any    `json:"value,omitempty"`
	PreviousValue *int   `json:"previous_value,omitempty"`
	Message       string `json:"message"`
	Suggestion    string `json:"suggestion,omitempty"`
}

type auditResponse struct {
	Hash          string `json:"hash"`
	ChainPosition int64  `json:"chain_position"`
}

type submitReportResponse struct {
	ReportID       string            `json:"report_id"`
	Status         string            `json:"status"`
	Warnings       []warningResponse `json:"warnings"`
	SuspicionScore int               `json:"suspicion_score"`
	RequiresReview bool              `json:"requires_review"`
	Audit          auditResponse     `json:"audit"`
}

type reportResponse struct {
	ReportID       string    `json:"report_id"`
	NodeID         string    `json:"node_id"`
	Date           string    `json:"date"`
	Fever          int       `json:"fever"`
	Cough          int       `json:"cough"`
	GI             int       `json:"gi"`
	Total          int       `json:"total"`
	SubmittedAt    time.Time `json:"submitted_at"`
	SuspicionScore int       `json:"suspicion_score"`
	RequiresReview bool      `json:"requires_review"`
}

type nodeHistoryResponse struct {
	NodeID       string           `json:"node_id"`
	NodeName     string           `json:"node_name"`
	TotalReports int              `json:"total_reports"`
	Reports      []reportResponse `json:"reports"`
}

type flaggedReportsResponse struct {
	Count   int              `json:"count"`
	Reports []reportResponse `json:"reports"`
}

type nodeStatusResponse struct {
	NodeID         string     `json:"node_id"`
	Name           string     `json:"name"`
	Status         string     `json:"status"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	LastReportAt   *time.Time `json:"last_report_at"`
	TotalReports   int        `json:"total_reports"`
	FlaggedReports int        `json:"flagged_reports"`
	RiskHint       string     `json:"risk_hint"`
}

type nodesStatusResponse struct {
	Count int                  `json:"count"`
	Nodes []nodeStatusResponse `json:"nodes"`
}

func toSubmitResponse(result *service.SubmitResult) submitReportResponse {
	warnings := make([]warningResponse, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		warnings = append(warnings, warningResponse{
			Severity:      string(w.Severity),
			Subject:       w.Subject,
			Value:         w.Value,
			PreviousValue: w.PreviousValue,
			Message:       w.Message,
			Suggestion:    w.Suggestion,
		})
	}
	return submitReportResponse{
		ReportID:       result.Report.ReportID,
		Status:         "accepted",
		Warnings:       warnings,
		SuspicionScore: result.SuspicionScore,
		RequiresReview: result.RequiresReview,
		Audit: auditResponse{
			Hash:          result.AuditHash,
			ChainPosition: result.ChainPosition,
		},
	}
}

func toReportResponses(reports []*models.SymptomReport) []reportResponse {
	out := make([]reportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, reportResponse{
			ReportID:       r.ReportID,
			NodeID:         r.NodeID,
			Date:           r.Date.String(),
			Fever:          r.Symptoms.Fever,
			Cough:          r.Symptoms.Cough,
			GI:             r.Symptoms.GI,
			Total:          r.Symptoms.Total(),
			SubmittedAt:    r.SubmittedAt,
			SuspicionScore: r.SuspicionScore,
			RequiresReview: r.RequiresReview,
		})
	}
	return out
}

func toNodeStatusResponse(status *service.NodeStatus) nodeStatusResponse {
	node := status.Node
	return nodeStatusResponse{
		NodeID:         node.NodeID,
		Name:           node.Name,
		Status:         string(node.Status),
		Latitude:       node.Latitude,
		Longitude:      node.Longitude,
		LastReportAt:   node.LastReportAt,
		TotalReports:   status.TotalReports,
		FlaggedReports: status.FlaggedReports,
		RiskHint:       status.RiskHint,
	}
}
