package handler

import (
	"biohive/internal/report/models"
	"biohive/pkg/domain"
	dErrors "biohive/pkg/domain-errors"
)

type symptomCountsRequest struct {
	Fever int `json:"fever"`
	Cough int `json:"cough"`
	GI    int `json:"gi"`
}

type submitReportRequest struct {
	NodeID   string               `json:"node_id,omitempty"`
	Date     string               `json:"date"`
	Symptoms symptomCountsRequest `json:"symptoms"`
}

// parse resolves the report date and counts. The node identity comes from the
// bearer token; a node_id in the body is accepted only when it matches.
func (req *submitReportRequest) parse(authedNodeID string) (domain.Date, models.SymptomCounts, error) {
	if req.NodeID != "" && req.NodeID != authedNodeID {
		return domain.Date{}, models.SymptomCounts{}, dErrors.Newf(dErrors.CodeBadRequest,
			"node_id %s does not match authenticated node", req.NodeID).
			WithField("node_id", req.NodeID)
	}
	if req.Date == "" {
		return domain.Date{}, models.SymptomCounts{}, dErrors.Validation("date", "date is required", nil)
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return domain.Date{}, models.SymptomCounts{}, dErrors.Validation("date",
			"date must be formatted YYYY-MM-DD", req.Date)
	}
	return date, models.SymptomCounts{
		Fever: req.Symptoms.Fever,
		Cough: req.Symptoms.Cough,
		GI:    req.Symptoms.GI,
	}, nil
}
