package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-16")
	require.NoError(t, err)
	assert.Equal(t, 2026, d.Year)
	assert.Equal(t, time.January, d.Month)
	assert.Equal(t, 16, d.Day)
	assert.Equal(t, "2026-01-16", d.String())

	_, err = ParseDate("16/01/2026")
	assert.Error(t, err)

	_, err = ParseDate("2026-13-01")
	assert.Error(t, err)
}

func TestDateArithmetic(t *testing.T) {
	d, err := ParseDate("2026-03-01")
	require.NoError(t, err)

	assert.Equal(t, "2026-02-28", d.AddDays(-1).String())
	assert.Equal(t, "2026-03-08", d.AddDays(7).String())
	assert.Equal(t, 7, d.AddDays(7).DaysSince(d))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-1)))
}

func TestDateWeekend(t *testing.T) {
	sat, err := ParseDate("2026-01-17")
	require.NoError(t, err)
	sun := sat.AddDays(1)
	mon := sat.AddDays(2)

	assert.True(t, sat.IsWeekend())
	assert.True(t, sun.IsWeekend())
	assert.False(t, mon.IsWeekend())
}

func TestDateJSON(t *testing.T) {
	d, err := ParseDate("2026-01-16")
	require.NoError(t, err)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2026-01-16"`, string(raw))

	var back Date
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, d, back)

	assert.Error(t, json.Unmarshal([]byte(`20260116`), &back))
}
