package models

import (
	"time"

	"biohive/pkg/domain"
)

// Severity grades how suspicious a single finding is. Severities weight into
// the report's suspicion score.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// SymptomCounts is one day's counts for the three tracked symptom classes.
type SymptomCounts struct {
	Fever int `json:"fever"`
	Cough int `json:"cough"`
	GI    int `json:"gi"`
}

// Total is the combined symptom count.
func (c SymptomCounts) Total() int {
	return c.Fever + c.Cough + c.GI
}

// SymptomReport is one node's accepted report for one calendar date.
// Immutable once created and never deleted; the audit ledger depends on this
// permanence. At most one report exists per (node, date).
type SymptomReport struct {
	ReportID       string
	NodeID         string
	Date           domain.Date
	Symptoms       SymptomCounts
	SubmittedAt    time.Time
	SuspicionScore int
	RequiresReview bool
}

// Warning annotates an accepted report with a suspicious finding. Warnings
// are returned to the submitter and folded into the suspicion score; they are
// not persisted on their own.
type Warning struct {
	Severity      Severity `json:"severity"`
	Subject       string   `json:"subject"`
	Value         any      `json:"value,omitempty"`
	PreviousValue *int     `json:"previous_value,omitempty"`
	Message       string   `json:"message"`
	Suggestion    string   `json:"suggestion"`
}
