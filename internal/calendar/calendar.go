// Package calendar holds the day and week arithmetic used for cadence
// windows, resets and streaks.
package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the format of every stored calendar key.
const DateLayout = "2006-01-02"

// Calendar answers "which day / which week" questions in one location with
// an injectable clock. Week boundaries are Monday 00:00.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func New(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

// Date formats t as a local calendar key.
func (c *Calendar) Date(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

func (c *Calendar) Today() string {
	return c.Date(c.now())
}

// TodayUTC is the UTC calendar key used by the streak tracker.
func (c *Calendar) TodayUTC() string {
	return UTCDate(c.now())
}

func (c *Calendar) StartOfDay(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

func (c *Calendar) SameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.In(c.loc).Date()
	by, bm, bd := b.In(c.loc).Date()
	return ay == by && am == bm && ad == bd
}

// WeekStart returns Monday 00:00 of the week containing t.
func (c *Calendar) WeekStart(t time.Time) time.Time {
	day := c.StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return time.Date(day.Year(), day.Month(), day.Day()-offset, 0, 0, 0, 0, c.loc)
}

func (c *Calendar) CurrentWeekStart() time.Time {
	return c.WeekStart(c.now())
}

func (c *Calendar) SameWeek(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	return c.WeekStart(a).Equal(c.WeekStart(b))
}

// InCurrentWeek parses a stored calendar key and reports whether it falls in
// the current week.
func (c *Calendar) InCurrentWeek(date string) bool {
	if date == "" {
		return false
	}
	t, err := time.ParseInLocation(DateLayout, date, c.loc)
	if err != nil {
		return false
	}
	return c.SameWeek(t, c.now())
}

func UTCDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// PreviousDay returns the calendar key of the day before date.
func PreviousDay(date string) (string, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	return t.AddDate(0, 0, -1).Format(DateLayout), nil
}
