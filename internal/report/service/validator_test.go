package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biohive/internal/report/config"
	"biohive/internal/report/models"
	"biohive/pkg/domain"
	dErrors "biohive/pkg/domain-errors"
)

func mustDate(t *testing.T, s string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

// 2026-03-16 is a Monday, 2026-03-14 a Saturday.
const (
	testMonday   = "2026-03-16"
	testSaturday = "2026-03-14"
)

func classifyInput(t *testing.T, symptoms models.SymptomCounts) Input {
	t.Helper()
	return Input{
		NodeID:   "clinic_1",
		Date:     mustDate(t, testMonday),
		Today:    mustDate(t, testMonday),
		Symptoms: symptoms,
	}
}

func TestClassifyCleanReport(t *testing.T) {
	out, err := Classify(config.DefaultConfig(),
		classifyInput(t, models.SymptomCounts{Fever: 5, Cough: 8, GI: 3}))
	require.NoError(t, err)

	assert.Empty(t, out.Warnings)
	assert.Equal(t, 0, out.SuspicionScore)
	assert.False(t, out.RequiresReview)
}

func TestClassifyExtremeCountsFlaggedForReview(t *testing.T) {
	out, err := Classify(config.DefaultConfig(),
		classifyInput(t, models.SymptomCounts{Fever: 120, Cough: 150, GI: 70}))
	require.NoError(t, err)

	highs := 0
	for _, w := range out.Warnings {
		if w.Severity == models.SeverityHigh {
			highs++
		}
	}
	// Each symptom exceeds its HIGH tier and the combined total of 340 does
	// too.
	assert.Equal(t, 4, highs)
	assert.GreaterOrEqual(t, out.SuspicionScore, 40)
	assert.True(t, out.RequiresReview)
}

func TestClassifyNeverHardRejectsPlausibleCounts(t *testing.T) {
	cfg := config.DefaultConfig()
	for _, fever := range []int{0, 1, 29, 31, 51, 101, 500, 10000} {
		for _, cough := range []int{0, 40, 150} {
			for _, gi := range []int{0, 16, 61} {
				_, err := Classify(cfg, classifyInput(t,
					models.SymptomCounts{Fever: fever, Cough: cough, GI: gi}))
				require.NoError(t, err, "fever=%d cough=%d gi=%d", fever, cough, gi)
			}
		}
	}
}

func TestClassifyNegativeCountRejected(t *testing.T) {
	_, err := Classify(config.DefaultConfig(),
		classifyInput(t, models.SymptomCounts{Fever: -1}))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	var domainErr *dErrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "symptoms.fever", domainErr.Field)
}

func TestClassifyFutureDateRejected(t *testing.T) {
	in := classifyInput(t, models.SymptomCounts{Fever: 5})
	in.Date = in.Today.AddDays(1)

	_, err := Classify(config.DefaultConfig(), in)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	var domainErr *dErrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "date", domainErr.Field)
}

func TestClassifyDuplicateRejected(t *testing.T) {
	in := classifyInput(t, models.SymptomCounts{Fever: 5})
	in.Duplicate = true

	_, err := Classify(config.DefaultConfig(), in)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Contains(t, err.Error(), "report already exists for clinic_1 on "+testMonday)
}

func TestClassifyStalenessTiers(t *testing.T) {
	tests := []struct {
		daysOld  int
		severity models.Severity
	}{
		{8, models.SeverityLow},
		{31, models.SeverityMedium},
		{61, models.SeverityHigh},
	}
	for _, tc := range tests {
		in := classifyInput(t, models.SymptomCounts{Fever: 5, Cough: 5, GI: 5})
		in.Date = in.Today.AddDays(-tc.daysOld)

		out, err := Classify(config.DefaultConfig(), in)
		require.NoError(t, err)

		found := false
		for _, w := range out.Warnings {
			if w.Subject == "date" && w.Severity == tc.severity {
				found = true
			}
		}
		assert.True(t, found, "expected %s staleness warning at %d days", tc.severity, tc.daysOld)
	}
}

func TestClassifySpikeTiers(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		severity models.Severity
		warned   bool
	}{
		{"ratio at threshold is not a spike", 20, "", false},
		{"low spike", 25, models.SeverityLow, true},
		{"medium spike", 35, models.SeverityMedium, true},
		{"high spike", 55, models.SeverityHigh, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := classifyInput(t, models.SymptomCounts{Fever: tc.current, Cough: 5, GI: 5})
			in.Previous = &models.SymptomCounts{Fever: 10, Cough: 5, GI: 5}

			out, err := Classify(config.DefaultConfig(), in)
			require.NoError(t, err)

			var spike *models.Warning
			for i, w := range out.Warnings {
				if w.Subject == "fever" && w.PreviousValue != nil {
					spike = &out.Warnings[i]
				}
			}
			if !tc.warned {
				assert.Nil(t, spike)
				return
			}
			require.NotNil(t, spike)
			assert.Equal(t, tc.severity, spike.Severity)
			assert.Equal(t, 10, *spike.PreviousValue)
		})
	}
}

func TestClassifyNoSpikeWithoutPriorCases(t *testing.T) {
	in := classifyInput(t, models.SymptomCounts{Fever: 25, Cough: 5, GI: 5})
	in.Previous = &models.SymptomCounts{Fever: 0, Cough: 5, GI: 5}

	out, err := Classify(config.DefaultConfig(), in)
	require.NoError(t, err)
	for _, w := range out.Warnings {
		assert.Nil(t, w.PreviousValue)
	}
}

func TestClassifyWeekendTotals(t *testing.T) {
	in := classifyInput(t, models.SymptomCounts{Fever: 25, Cough: 20, GI: 15})
	in.Date = mustDate(t, testSaturday)

	out, err := Classify(config.DefaultConfig(), in)
	require.NoError(t, err)

	found := false
	for _, w := range out.Warnings {
		if w.Subject == "date" && w.Severity == models.SeverityMedium {
			found = true
		}
	}
	assert.True(t, found, "expected weekend warning for total of 60")
}

func TestClassifyAllZeroCounts(t *testing.T) {
	out, err := Classify(config.DefaultConfig(),
		classifyInput(t, models.SymptomCounts{}))
	require.NoError(t, err)

	require.Len(t, out.Warnings, 1)
	assert.Equal(t, models.SeverityLow, out.Warnings[0].Severity)
	assert.Equal(t, "symptoms", out.Warnings[0].Subject)
	assert.Equal(t, 2, out.SuspicionScore)
	assert.False(t, out.RequiresReview)
}

func TestClassifyRoundNumberHeuristic(t *testing.T) {
	out, err := Classify(config.DefaultConfig(),
		classifyInput(t, models.SymptomCounts{Fever: 60, Cough: 3, GI: 2}))
	require.NoError(t, err)

	found := false
	for _, w := range out.Warnings {
		if w.Subject == "fever" && w.Severity == models.SeverityLow && w.PreviousValue == nil {
			found = true
		}
	}
	assert.True(t, found, "expected round-number warning for fever=60")
}

func TestClassifyDeterministic(t *testing.T) {
	cfg := config.DefaultConfig()
	in := classifyInput(t, models.SymptomCounts{Fever: 120, Cough: 150, GI: 70})

	first, err := Classify(cfg, in)
	require.NoError(t, err)
	second, err := Classify(cfg, in)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestClassifyReviewThresholdConfigurable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ReviewThreshold = 1

	out, err := Classify(cfg, classifyInput(t, models.SymptomCounts{}))
	require.NoError(t, err)
	assert.True(t, out.RequiresReview)
}
