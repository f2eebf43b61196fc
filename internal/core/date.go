package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day. The wrapped time is always midnight UTC, so two
// Dates for the same day compare equal with ==.
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// ParseWeekday accepts an English weekday name, its three-letter prefix or
// a number from 0 (Sunday) to 6.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("%w: weekday %d", ErrInvalidDay, n)
		}
		return time.Weekday(n), nil
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("%w: weekday %q", ErrInvalidDay, s)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// AddDays moves n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonthsClamped moves n months forward (or back) and pins the day to
// dayOfMonth, or to d's own day when dayOfMonth is 0. The day is clamped to
// the last day of the target month, so Jan 31 + 1 month is Feb 28/29 rather
// than spilling into March the way time.AddDate does.
func (d Date) AddMonthsClamped(n, dayOfMonth int) Date {
	y, m := d.Year(), d.Month()-1+n
	y += m / 12
	m %= 12
	if m < 0 {
		m += 12
		y--
	}
	month := m + 1

	day := dayOfMonth
	if day <= 0 {
		day = d.Day()
	}
	if last := DaysInMonth(y, month); day > last {
		day = last
	}
	return NewDate(y, month, day)
}

// DaysUntil returns the number of calendar days from d to o (negative when o
// is in the past).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time.Sub(d.Time).Hours() / 24)
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextDayOfMonthOnOrAfter returns the next date whose day of month is day
// (clamped to month length) that is not before today. If this month's
// occurrence has already passed it rolls to next month.
func NextDayOfMonthOnOrAfter(today Date, day int) Date {
	candidate := today.AddMonthsClamped(0, day)
	if candidate.Before(today) {
		candidate = today.AddMonthsClamped(1, day)
	}
	return candidate
}

// MinDate returns the earlier of two dates, ignoring zero values.
func MinDate(a, b Date) Date {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	case b.Before(a):
		return b
	default:
		return a
	}
}

// Clock supplies the current time. Everything that needs "today" takes one so
// tests can pin it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Today returns the clock's current calendar day.
func Today(c Clock) Date {
	return DateOf(c.Now())
}
