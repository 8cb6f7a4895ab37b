package service

import (
	"fmt"

	"biohive/internal/report/config"
	"biohive/internal/report/models"
	"biohive/pkg/domain"
	dErrors "biohive/pkg/domain-errors"
)

// Input is everything Classify needs. The caller supplies the queried history
// (duplicate flag, previous-day counts) so classification stays a pure
// function of its arguments.
type Input struct {
	NodeID   string
	Date     domain.Date
	Today    domain.Date
	Symptoms models.SymptomCounts
	// Previous holds the same node's prior-day counts, nil when that day has
	// no report.
	Previous *models.SymptomCounts
	// Duplicate is the advisory pre-check result for (node, date). The store
	// remains the authoritative guard on insert.
	Duplicate bool
}

// Outcome is the accept-with-annotations result. Hard failures are returned
// as errors instead.
type Outcome struct {
	Warnings       []models.Warning
	SuspicionScore int
	RequiresReview bool
}

// Classify grades one submission. Plausible data is never rejected: any
// non-negative counts on a valid, non-duplicate (node, date) are accepted and
// only annotated. Hard failures are negative counts, a future date, and a
// duplicate (node, date).
func Classify(cfg config.Config, in Input) (Outcome, error) {
	var warnings []models.Warning

	counts := in.Symptoms
	if counts.Fever < 0 {
		return Outcome{}, dErrors.Validation("symptoms.fever", "fever count cannot be negative", counts.Fever)
	}
	if counts.Cough < 0 {
		return Outcome{}, dErrors.Validation("symptoms.cough", "cough count cannot be negative", counts.Cough)
	}
	if counts.GI < 0 {
		return Outcome{}, dErrors.Validation("symptoms.gi", "GI count cannot be negative", counts.GI)
	}

	warnings = append(warnings, rangeWarnings("fever", counts.Fever, cfg.FeverTiers)...)
	warnings = append(warnings, rangeWarnings("cough", counts.Cough, cfg.CoughTiers)...)
	warnings = append(warnings, rangeWarnings("gi", counts.GI, cfg.GITiers)...)

	if in.Date.After(in.Today) {
		return Outcome{}, dErrors.Validation("date", "report date cannot be in the future", in.Date.String())
	}

	if w, ok := stalenessWarning(cfg, in.Date, in.Today); ok {
		warnings = append(warnings, w)
	}

	if in.Duplicate {
		return Outcome{}, dErrors.Newf(dErrors.CodeConflict,
			"report already exists for %s on %s", in.NodeID, in.Date).
			WithField("date", in.Date.String())
	}

	if in.Previous != nil {
		warnings = append(warnings, spikeWarnings(cfg, "fever", counts.Fever, in.Previous.Fever)...)
		warnings = append(warnings, spikeWarnings(cfg, "cough", counts.Cough, in.Previous.Cough)...)
		warnings = append(warnings, spikeWarnings(cfg, "gi", counts.GI, in.Previous.GI)...)
	}

	if in.Date.IsWeekend() {
		total := counts.Total()
		if total > cfg.WeekendMediumTotal {
			warnings = append(warnings, models.Warning{
				Severity:   models.SeverityMedium,
				Subject:    "date",
				Value:      in.Date.String(),
				Message:    fmt.Sprintf("high symptom count (%d) on weekend", total),
				Suggestion: "unusual for clinic operations - verify accuracy",
			})
		} else if total > cfg.WeekendLowTotal {
			warnings = append(warnings, models.Warning{
				Severity:   models.SeverityLow,
				Subject:    "date",
				Value:      in.Date.String(),
				Message:    fmt.Sprintf("notable activity (%d symptoms) on weekend", total),
				Suggestion: "confirm clinic was operational",
			})
		}
	}

	if counts.Fever == 0 && counts.Cough == 0 && counts.GI == 0 {
		warnings = append(warnings, models.Warning{
			Severity:   models.SeverityLow,
			Subject:    "symptoms",
			Message:    "all symptom counts are zero",
			Suggestion: "verify: was clinic open? is this intentional?",
		})
	}

	total := counts.Total()
	if total > cfg.TotalHigh {
		warnings = append(warnings, models.Warning{
			Severity:   models.SeverityHigh,
			Subject:    "symptoms",
			Value:      total,
			Message:    fmt.Sprintf("extremely high total symptom count: %d", total),
			Suggestion: "verify this is not a data entry error or aggregation mistake",
		})
	} else if total > cfg.TotalMedium {
		warnings = append(warnings, models.Warning{
			Severity:   models.SeverityMedium,
			Subject:    "symptoms",
			Value:      total,
			Message:    fmt.Sprintf("very high total symptom count: %d", total),
			Suggestion: "confirm accuracy - potential outbreak signal",
		})
	}

	for _, symptom := range []struct {
		name  string
		count int
	}{{"fever", counts.Fever}, {"cough", counts.Cough}} {
		if symptom.count >= cfg.RoundNumberFloor && symptom.count%10 == 0 {
			warnings = append(warnings, models.Warning{
				Severity:   models.SeverityLow,
				Subject:    symptom.name,
				Value:      symptom.count,
				Message:    fmt.Sprintf("suspiciously round number: %d", symptom.count),
				Suggestion: "verify this is an actual count, not an estimate",
			})
		}
	}

	score := 0
	for _, w := range warnings {
		score += cfg.Weight(w.Severity)
	}

	return Outcome{
		Warnings:       warnings,
		SuspicionScore: score,
		RequiresReview: score >= cfg.ReviewThreshold,
	}, nil
}

func rangeWarnings(symptom string, count int, tiers config.Tiers) []models.Warning {
	switch {
	case count > tiers.High:
		return []models.Warning{{
			Severity:   models.SeverityHigh,
			Subject:    symptom,
			Value:      count,
			Message:    fmt.Sprintf("extremely high %s count: %d (typical max: %d)", symptom, count, tiers.Medium),
			Suggestion: "please verify this count is accurate",
		}}
	case count > tiers.Medium:
		return []models.Warning{{
			Severity:   models.SeverityMedium,
			Subject:    symptom,
			Value:      count,
			Message:    fmt.Sprintf("unusually high %s count: %d (typical range: 0-%d)", symptom, count, tiers.Medium),
			Suggestion: "double-check if this reflects actual cases",
		}}
	case count > tiers.Low:
		return []models.Warning{{
			Severity:   models.SeverityLow,
			Subject:    symptom,
			Value:      count,
			Message:    fmt.Sprintf("higher than average %s count: %d", symptom, count),
			Suggestion: "monitor for potential outbreak",
		}}
	}
	return nil
}

func stalenessWarning(cfg config.Config, date, today domain.Date) (models.Warning, bool) {
	daysOld := today.DaysSince(date)
	w := models.Warning{Subject: "date", Value: date.String(),
		Message: fmt.Sprintf("report is %d days old", daysOld)}
	switch {
	case daysOld > cfg.StalenessDays.High:
		w.Severity = models.SeverityHigh
		w.Suggestion = "very old data - verify accuracy"
	case daysOld > cfg.StalenessDays.Medium:
		w.Severity = models.SeverityMedium
		w.Suggestion = "consider submitting more recent data"
	case daysOld > cfg.StalenessDays.Low:
		w.Severity = models.SeverityLow
		w.Suggestion = "backfilling data - ensure accuracy"
	default:
		return models.Warning{}, false
	}
	return w, true
}

// spikeWarnings grades the day-over-day ratio for one symptom. The ratio is
// only meaningful when both days saw cases.
func spikeWarnings(cfg config.Config, symptom string, count, previous int) []models.Warning {
	if count <= 0 || previous <= 0 {
		return nil
	}
	ratio := float64(count) / float64(previous)
	prev := previous
	w := models.Warning{Subject: symptom, Value: count, PreviousValue: &prev}
	switch {
	case ratio > cfg.Spike.High:
		w.Severity = models.SeverityHigh
		w.Message = fmt.Sprintf("extreme %s spike: %.1fx increase from previous day", symptom, ratio)
		w.Suggestion = "verify data accuracy - possible outbreak or data entry error"
	case ratio > cfg.Spike.Medium:
		w.Severity = models.SeverityMedium
		w.Message = fmt.Sprintf("significant %s spike: %.1fx increase from previous day", symptom, ratio)
		w.Suggestion = "monitor closely for outbreak development"
	case ratio > cfg.Spike.Low:
		w.Severity = models.SeverityLow
		w.Message = fmt.Sprintf("notable %s increase: %.1fx from previous day", symptom, ratio)
		w.Suggestion = "continue monitoring"
	default:
		return nil
	}
	return []models.Warning{w}
}
