package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEpochCalculator_EpochID(t *testing.T) {
	calc := NewEpochCalculator(time.UTC)
	day := func(m time.Month, d, year int) time.Time { return time.Date(year, m, d, 12, 0, 0, 0, time.UTC) }

	cases := []struct {
		at   time.Time
		want string
	}{
		{day(time.January, 1, 2026), "2026-W01"},
		{day(time.January, 3, 2026), "2026-W01"},
		{day(time.January, 4, 2026), "2026-W02"},
		{day(time.July, 11, 2026), "2026-W28"},
		{day(time.July, 12, 2026), "2026-W29"},
		{day(time.July, 15, 2026), "2026-W29"},
		{day(time.July, 18, 2026), "2026-W29"},
		{day(time.July, 19, 2026), "2026-W30"},
		{day(time.December, 31, 2026), "2026-W53"},
		{day(time.January, 1, 2027), "2027-W01"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, calc.EpochID(tc.at), tc.at.Format(time.DateOnly))
	}
}

func TestEpochCalculator_SameWeekSameID(t *testing.T) {
	calc := NewEpochCalculator(time.UTC)
	start := time.Date(2026, time.July, 12, 0, 0, 0, 0, time.UTC)
	want := calc.EpochID(start)
	for h := 0; h < 7*24; h++ {
		assert.Equal(t, want, calc.EpochID(start.Add(time.Duration(h)*time.Hour)))
	}
	assert.NotEqual(t, want, calc.EpochID(start.Add(7*24*time.Hour)))
}

func TestEpochCalculator_YearBoundarySplitsWeek(t *testing.T) {
	calc := NewEpochCalculator(time.UTC)
	thu := time.Date(2026, time.December, 31, 12, 0, 0, 0, time.UTC)
	fri := thu.Add(24 * time.Hour)
	assert.NotEqual(t, calc.EpochID(thu), calc.EpochID(fri))
	assert.True(t, calc.EpochEnd(thu).Equal(calc.EpochEnd(fri)))
}

func TestEpochCalculator_EpochEnd(t *testing.T) {
	calc := NewEpochCalculator(time.UTC)
	sundayEnd := time.Date(2026, time.July, 19, 23, 59, 59, int(999*time.Millisecond), time.UTC)

	assert.Equal(t, sundayEnd, calc.EpochEnd(wednesday))
	assert.Equal(t, sundayEnd, calc.EpochEnd(time.Date(2026, time.July, 18, 23, 0, 0, 0, time.UTC)))
	// on a Sunday the end is a full week ahead
	assert.Equal(t, sundayEnd, calc.EpochEnd(time.Date(2026, time.July, 12, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, sundayEnd.AddDate(0, 0, 7), calc.EpochEnd(time.Date(2026, time.July, 19, 8, 0, 0, 0, time.UTC)))
}

func TestEpochCalculator_Location(t *testing.T) {
	instant := time.Date(2026, time.July, 19, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-W30", NewEpochCalculator(time.UTC).EpochID(instant))

	west := NewEpochCalculator(time.FixedZone("UTC-5", -5*3600))
	assert.Equal(t, "2026-W29", west.EpochID(instant))
	end := west.EpochEnd(instant)
	assert.Equal(t, 19, end.Day())
	assert.Equal(t, -5*3600, func() int { _, off := end.Zone(); return off }())

	assert.Equal(t, "2026-W30", EpochCalculator{}.EpochID(instant), "nil location means UTC")
}
