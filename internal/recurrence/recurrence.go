package recurrence

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"conti/internal/core"
)

var (
	// ErrUnsupportedFrequency is a caller error and is never retried
	ErrUnsupportedFrequency = errors.New("recurrence: unsupported frequency")

	// ErrInvalidInterval is returned for negative intervals
	ErrInvalidInterval = errors.New("recurrence: invalid interval")

	// ErrUnboundedForecast is returned when neither a horizon nor an end
	// date bounds a forecast
	ErrUnboundedForecast = errors.New("recurrence: forecast needs a horizon")
)

// NextOccurrence returns the first occurrence after from. An interval of 0
// means 1.
func NextOccurrence(from core.Date, f core.Frequency, interval int, opts Options) (core.Date, error) {
	if interval < 0 {
		return core.Date{}, fmt.Errorf("%w: %d", ErrInvalidInterval, interval)
	}
	if interval == 0 {
		interval = 1
	}
	s, err := StepperFor(f)
	if err != nil {
		return core.Date{}, err
	}
	return s.Step(from, interval, opts), nil
}

// OptionsOf extracts the calendar anchors of d.
func OptionsOf(d core.RecurrenceDescriptor) Options {
	return Options{DayOfMonth: d.DayOfMonth, DayOfWeek: d.DayOfWeek}
}

// Next is NextOccurrence driven by a descriptor.
func Next(d core.RecurrenceDescriptor, from core.Date) (core.Date, error) {
	if d.Interval < 0 {
		return core.Date{}, fmt.Errorf("%w: %d", ErrInvalidInterval, d.Interval)
	}
	return NextOccurrence(from, d.Frequency, d.EffectiveInterval(), OptionsOf(d))
}

// Start validates d and prepares it for firing: the first occurrence is the
// anchor date, and month-based schedules pin their day of month to the
// anchor's so short months do not make the schedule drift.
func Start(d core.RecurrenceDescriptor) (core.RecurrenceDescriptor, error) {
	if err := d.Validate(); err != nil {
		return d, err
	}
	if _, err := StepperFor(d.Frequency); err != nil {
		return d, err
	}
	d.Interval = d.EffectiveInterval()
	if d.DayOfMonth == 0 && IsMonthBased(d.Frequency) {
		d.DayOfMonth = d.AnchorDate.Day()
	}
	if d.NextOccurrence.IsZero() {
		d.NextOccurrence = d.AnchorDate
	}
	d.Active = true
	if !d.EndDate.IsZero() && d.NextOccurrence.After(d.EndDate) {
		d.Active = false
	}
	return d, nil
}

// Advance records a firing on firingDate. The returned descriptor's
// NextOccurrence is the occurrence after firingDate, or the descriptor is
// deactivated when that would pass EndDate.
func Advance(d core.RecurrenceDescriptor, firingDate core.Date) (core.RecurrenceDescriptor, error) {
	next, err := Next(d, firingDate)
	if err != nil {
		return d, err
	}
	if !d.EndDate.IsZero() && next.After(d.EndDate) {
		d.Active = false
		return d, nil
	}
	d.NextOccurrence = next
	return d, nil
}

// Occurrence is one forecast line: a date and the instance the template
// would produce on it.
type Occurrence struct {
	Date     core.Date
	Instance core.Transaction
}

// Instance builds the one-off entry template fires on day on. The template
// itself is not modified.
func Instance(template core.Transaction, on core.Date) core.Transaction {
	inst := template
	inst.ID = ""
	inst.OccurredAt = on
	inst.Status = core.StatusPending
	inst.Recurrence = nil
	inst.TemplateID = template.ID
	inst.AppliedAt = time.Time{}
	inst.ReversalOf = ""
	inst.ReversedBy = ""
	inst.CreatedAt = time.Time{}
	if template.Installment != nil {
		info := *template.Installment
		inst.Installment = &info
	}
	return inst
}

// Dates lazily yields the occurrences of d from its NextOccurrence up to
// the earlier of horizonEnd and d.EndDate, inclusive. Each call to the
// returned sequence starts over.
func Dates(d core.RecurrenceDescriptor, horizonEnd core.Date) (iter.Seq[core.Date], error) {
	limit := core.MinDate(horizonEnd, d.EndDate)
	if limit.IsZero() {
		return nil, ErrUnboundedForecast
	}
	if d.Interval < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidInterval, d.Interval)
	}
	if _, err := StepperFor(d.Frequency); err != nil {
		return nil, err
	}

	start := d.NextOccurrence
	if start.IsZero() {
		start = d.AnchorDate
	}

	return func(yield func(core.Date) bool) {
		if !d.Active {
			return
		}
		for at := start; !at.After(limit); {
			if !yield(at) {
				return
			}
			next, err := Next(d, at)
			if err != nil {
				return
			}
			at = next
		}
	}, nil
}

// Forecast pairs each date of Dates with the instance template would fire.
func Forecast(d core.RecurrenceDescriptor, template core.Transaction, horizonEnd core.Date) (iter.Seq[Occurrence], error) {
	dates, err := Dates(d, horizonEnd)
	if err != nil {
		return nil, err
	}
	return func(yield func(Occurrence) bool) {
		for at := range dates {
			if !yield(Occurrence{Date: at, Instance: Instance(template, at)}) {
				return
			}
		}
	}, nil
}

// Collect drains at most limit elements of seq. A limit <= 0 drains all.
func Collect[T any](seq iter.Seq[T], limit int) []T {
	var out []T
	for v := range seq {
		out = append(out, v)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
