// Package recurrence computes occurrence dates for recurring transactions.
//
// Each frequency has its own Stepper that moves a date forward by one
// period. Steppers are looked up from a registry so new frequencies can be
// added without touching the calculator.
package recurrence

import (
	"fmt"
	"sync"
	"time"

	"conti/internal/core"
)

// Options carries the optional calendar anchors of a descriptor.
type Options struct {
	DayOfMonth int           // 0 keeps the day of the date being stepped
	DayOfWeek  *time.Weekday // weekly only
}

// Stepper moves from forward by interval periods. interval is always >= 1
// and the result is always strictly after from.
type Stepper interface {
	Step(from core.Date, interval int, opts Options) core.Date
}

// DayStepper adds a fixed number of days per period.
type DayStepper struct {
	Days int
}

func (s DayStepper) Step(from core.Date, interval int, _ Options) core.Date {
	return from.AddDays(s.Days * interval)
}

// WeekStepper adds whole weeks and, when a weekday is given, moves forward
// to the first matching weekday strictly after from.
type WeekStepper struct{}

func (WeekStepper) Step(from core.Date, interval int, opts Options) core.Date {
	next := from.AddDays(7 * interval)
	if opts.DayOfWeek == nil {
		return next
	}
	shift := (int(*opts.DayOfWeek) - int(next.Weekday()) + 7) % 7
	next = next.AddDays(shift)
	if !next.After(from) {
		next = next.AddDays(7)
	}
	return next
}

// MonthStepper adds Months*interval calendar months, clamping the day to
// the length of the target month.
type MonthStepper struct {
	Months int
}

func (s MonthStepper) Step(from core.Date, interval int, opts Options) core.Date {
	return from.AddMonthsClamped(s.Months*interval, opts.DayOfMonth)
}

var (
	mu       sync.RWMutex
	steppers = map[core.Frequency]Stepper{
		core.Daily:        DayStepper{Days: 1},
		core.Weekly:       WeekStepper{},
		core.Biweekly:     DayStepper{Days: 14},
		core.Monthly:      MonthStepper{Months: 1},
		core.Bimonthly:    MonthStepper{Months: 2},
		core.Quarterly:    MonthStepper{Months: 3},
		core.Semiannually: MonthStepper{Months: 6},
		core.Annually:     MonthStepper{Months: 12},
	}
)

// StepperFor returns the stepper registered for f.
func StepperFor(f core.Frequency) (Stepper, error) {
	mu.RLock()
	defer mu.RUnlock()

	s, ok := steppers[f]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFrequency, f)
	}
	return s, nil
}

// Register installs s for f, replacing any existing stepper.
func Register(f core.Frequency, s Stepper) {
	mu.Lock()
	defer mu.Unlock()
	steppers[f] = s
}

// IsMonthBased reports whether f steps by calendar months.
func IsMonthBased(f core.Frequency) bool {
	s, err := StepperFor(f)
	if err != nil {
		return false
	}
	_, ok := s.(MonthStepper)
	return ok
}
