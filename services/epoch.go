package services

import (
	"fmt"
	"time"
)

// Epoch is one weekly matching window.
type Epoch struct {
	ID  string
	End time.Time
}

// EpochCalculator buckets instants into weekly epochs in a fixed location.
//
// Weeks run Sunday to Saturday counted from January 1st, which is not ISO-8601:
// the first and last weeks of a year are usually partial, and the end boundary
// is the Sunday after the current day, so on a Sunday it lies a full week ahead.
type EpochCalculator struct {
	Location *time.Location
}

func NewEpochCalculator(loc *time.Location) EpochCalculator {
	return EpochCalculator{Location: loc}
}

func (c EpochCalculator) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// EpochID returns "YYYY-Www" with week = ceil((daysSinceJan1 + weekdayOfJan1 + 1) / 7).
func (c EpochCalculator) EpochID(t time.Time) string {
	lt := t.In(c.loc())
	jan1 := time.Date(lt.Year(), time.January, 1, 0, 0, 0, 0, c.loc())
	n := lt.YearDay() - 1 + int(jan1.Weekday()) + 1
	week := (n + 6) / 7
	return fmt.Sprintf("%d-W%02d", lt.Year(), week)
}

// EpochEnd returns 23:59:59.999 on date + (7 - weekday) days.
func (c EpochCalculator) EpochEnd(t time.Time) time.Time {
	lt := t.In(c.loc())
	y, m, d := lt.Date()
	return time.Date(y, m, d+7-int(lt.Weekday()), 23, 59, 59, int(999*time.Millisecond), c.loc())
}

func (c EpochCalculator) Epoch(t time.Time) Epoch {
	return Epoch{ID: c.EpochID(t), End: c.EpochEnd(t)}
}
