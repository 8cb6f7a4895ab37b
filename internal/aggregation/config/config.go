// Package config holds the rule-based risk scoring bands. All values are
// injectable so deployments can tune them without code changes.
package config

// Band maps one metric's daily total to a point contribution. Comparisons are
// >= against the thresholds, highest band first.
type Band struct {
	High     int
	Moderate int
	Low      int

	HighPoints     float64
	ModeratePoints float64
	LowPoints      float64
}

// Points returns the band's contribution for the given total.
func (b Band) Points(total int) float64 {
	switch {
	case total >= b.High:
		return b.HighPoints
	case total >= b.Moderate:
		return b.ModeratePoints
	case total >= b.Low:
		return b.LowPoints
	default:
		return 0
	}
}

// Config drives risk scoring for the daily rollup.
type Config struct {
	Fever Band
	Cough Band
	GI    Band
	Total Band

	// Risk level cut-offs over the clamped 0-100 score.
	HighLevel     float64
	ModerateLevel float64
}

// DefaultConfig returns the production scoring bands.
func DefaultConfig() Config {
	return Config{
		Fever: Band{
			High: 300, Moderate: 150, Low: 50,
			HighPoints: 35, ModeratePoints: 20, LowPoints: 10,
		},
		Cough: Band{
			High: 400, Moderate: 200, Low: 75,
			HighPoints: 30, ModeratePoints: 18, LowPoints: 8,
		},
		GI: Band{
			High: 200, Moderate: 100, Low: 30,
			HighPoints: 20, ModeratePoints: 12, LowPoints: 5,
		},
		Total: Band{
			High: 900, Moderate: 450, Low: 150,
			HighPoints: 15, ModeratePoints: 8, LowPoints: 3,
		},
		HighLevel:     60,
		ModerateLevel: 30,
	}
}
