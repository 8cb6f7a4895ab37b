// Package config holds the intake validator's thresholds. Everything the
// suspicion scorer compares against lives here so deployments can tune the
// heuristics and tests can pin them.
package config

import "biohive/internal/report/models"

// Tiers are the strictly-greater-than cut points for a three-level finding.
type Tiers struct {
	Low    int
	Medium int
	High   int
}

// SpikeRatios are the day-over-day multiplier cut points.
type SpikeRatios struct {
	Low    float64
	Medium float64
	High   float64
}

// Config is the full set of intake heuristics.
type Config struct {
	FeverTiers Tiers
	CoughTiers Tiers
	GITiers    Tiers

	// StalenessDays grades how old a backfilled report date is.
	StalenessDays Tiers

	// Spike grades the ratio against the same node's prior-day count,
	// evaluated per symptom and only when the prior count is positive.
	Spike SpikeRatios

	// Weekend totals that look unusual for clinic operations.
	WeekendLowTotal    int
	WeekendMediumTotal int

	// Combined-total cut points across all three symptoms.
	TotalMedium int
	TotalHigh   int

	// RoundNumberFloor is the minimum fever/cough count at which an exact
	// multiple of ten looks like an estimate rather than a count.
	RoundNumberFloor int

	// SeverityWeights convert warning severities into suspicion points.
	SeverityWeights map[models.Severity]int

	// ReviewThreshold is the suspicion score at or above which a report is
	// flagged for manual review.
	ReviewThreshold int
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		FeverTiers:         Tiers{Low: 30, Medium: 50, High: 100},
		CoughTiers:         Tiers{Low: 30, Medium: 50, High: 100},
		GITiers:            Tiers{Low: 15, Medium: 30, High: 60},
		StalenessDays:      Tiers{Low: 7, Medium: 30, High: 60},
		Spike:              SpikeRatios{Low: 2, Medium: 3, High: 5},
		WeekendLowTotal:    20,
		WeekendMediumTotal: 50,
		TotalMedium:        100,
		TotalHigh:          200,
		RoundNumberFloor:   50,
		SeverityWeights: map[models.Severity]int{
			models.SeverityLow:    2,
			models.SeverityMedium: 5,
			models.SeverityHigh:   10,
		},
		ReviewThreshold: 15,
	}
}

// Weight returns the suspicion points for a severity.
func (c Config) Weight(severity models.Severity) int {
	return c.SeverityWeights[severity]
}
