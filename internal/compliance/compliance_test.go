package compliance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChecker(t *testing.T, dnc ...string) *Checker {
	t.Helper()
	c, err := NewChecker("America/New_York", dnc)
	require.NoError(t, err)
	return c
}

func nyTime(t *testing.T, layout string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	ts, err := time.ParseInLocation("2006-01-02 15:04", layout, loc)
	require.NoError(t, err)
	return ts
}

func TestCheck(t *testing.T) {
	c := newChecker(t, "+1 (555) 000-1111")
	loc := c.location

	tests := []struct {
		name    string
		phone   string
		at      string
		canCall bool
		reasons []string
	}{
		// 2026-10-14 is a Wednesday, 2026-10-18 a Sunday.
		{"weekday afternoon", "(555) 123-4567", "2026-10-14 14:30", true, []string{}},
		{"first allowed minute", "555-123-4567", "2026-10-14 09:00", true, []string{}},
		{"before nine", "555.123.4567", "2026-10-14 08:59", false, []string{ReasonOutsideHours}},
		{"last allowed hour", "+15551234567", "2026-10-14 20:59", true, []string{}},
		{"nine pm", "5551234567", "2026-10-14 21:00", false, []string{ReasonOutsideHours}},
		{"sunday", "5551234567", "2026-10-18 12:00", false, []string{ReasonSunday}},
		{"bad format", "call me", "2026-10-14 12:00", false, []string{ReasonInvalidFormat}},
		{"do not call", "555-000-1111", "2026-10-14 12:00", false, []string{ReasonDoNotCall}},
		{"everything wrong", "12", "2026-10-18 23:00", false, []string{ReasonInvalidFormat, ReasonOutsideHours, ReasonSunday}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Check(tt.phone, nyTime(t, tt.at), loc)
			assert.Equal(t, tt.canCall, res.CanCall)
			assert.Equal(t, tt.reasons, res.Reasons)
			assert.Equal(t, "America/New_York", res.Timezone)
		})
	}
}

func TestEvaluate_TimezoneOverride(t *testing.T) {
	// 15:00 UTC is 11:00 in New York but 08:00 in Los Angeles.
	fixed := time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)
	c := newChecker(t).WithClock(func() time.Time { return fixed })

	res, err := c.Evaluate("5551234567", "")
	require.NoError(t, err)
	assert.True(t, res.CanCall)
	assert.Equal(t, "2026-10-14T11:00:00-04:00", res.LocalTime)

	res, err = c.Evaluate("5551234567", "America/Los_Angeles")
	require.NoError(t, err)
	assert.False(t, res.CanCall)
	assert.False(t, res.Checks.HoursCheck)
	assert.True(t, res.Checks.FormatCheck)

	_, err = c.Evaluate("5551234567", "Mars/Olympus")
	assert.ErrorIs(t, err, ErrUnknownTimezone)
}

func TestNewChecker_BadTimezone(t *testing.T) {
	_, err := NewChecker("Nowhere/City", nil)
	assert.ErrorIs(t, err, ErrUnknownTimezone)
}

func TestNormalizePhone(t *testing.T) {
	got, ok := NormalizePhone("+1 (555) 123-4567")
	assert.True(t, ok)
	assert.Equal(t, "5551234567", got)

	_, ok = NormalizePhone("123")
	assert.False(t, ok)
}
