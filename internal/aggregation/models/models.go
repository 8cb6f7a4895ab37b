package models

import (
	"time"

	"biohive/pkg/domain"
)

// RiskLevel buckets a date's risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
)

// AggregatedSignal is the per-date rollup across all nodes, keyed by Date.
// It is a pure function of the reports stored for that date: recomputing with
// unchanged inputs reproduces it exactly, so storage is an upsert, not an
// append. AnomalyDetected is reserved for the downstream detection consumers
// and is always false here.
type AggregatedSignal struct {
	Date               domain.Date `json:"date"`
	TotalFever         int         `json:"total_fever"`
	TotalCough         int         `json:"total_cough"`
	TotalGI            int         `json:"total_gi"`
	ParticipatingNodes int         `json:"participating_nodes"`
	RiskScore          float64     `json:"risk_score"`
	RiskLevel          RiskLevel   `json:"risk_level"`
	AnomalyDetected    bool        `json:"anomaly_detected"`
	ComputedAt         time.Time   `json:"computed_at"`
}

// TotalSymptoms is the combined count across all three symptoms.
func (s *AggregatedSignal) TotalSymptoms() int {
	return s.TotalFever + s.TotalCough + s.TotalGI
}

// RangeOutcome is one date's result within a range aggregation. Exactly one
// of Signal and Error is set.
type RangeOutcome struct {
	Signal *AggregatedSignal `json:"signal,omitempty"`
	Error  string            `json:"error,omitempty"`
}
