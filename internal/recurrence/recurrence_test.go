package recurrence

import (
	"errors"
	"testing"
	"time"

	"conti/internal/core"
)

func d(y, m, day int) core.Date { return core.NewDate(y, m, day) }

func weekday(w time.Weekday) *time.Weekday { return &w }

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name     string
		from     core.Date
		freq     core.Frequency
		interval int
		opts     Options
		want     core.Date
	}{
		{"daily", d(2024, 1, 30), core.Daily, 1, Options{}, d(2024, 1, 31)},
		{"daily interval 3", d(2024, 1, 30), core.Daily, 3, Options{}, d(2024, 2, 2)},
		{"daily interval 0 means 1", d(2024, 12, 31), core.Daily, 0, Options{}, d(2025, 1, 1)},
		{"weekly", d(2024, 1, 1), core.Weekly, 1, Options{}, d(2024, 1, 8)},
		{"weekly to friday", d(2024, 1, 1), core.Weekly, 1, Options{DayOfWeek: weekday(time.Friday)}, d(2024, 1, 12)},
		{"weekly same weekday", d(2024, 1, 1), core.Weekly, 1, Options{DayOfWeek: weekday(time.Monday)}, d(2024, 1, 8)},
		{"weekly interval 2", d(2024, 1, 1), core.Weekly, 2, Options{}, d(2024, 1, 15)},
		{"biweekly", d(2024, 1, 1), core.Biweekly, 1, Options{}, d(2024, 1, 15)},
		{"biweekly interval 2", d(2024, 1, 1), core.Biweekly, 2, Options{}, d(2024, 1, 29)},
		{"monthly clamps to leap february", d(2024, 1, 31), core.Monthly, 1, Options{DayOfMonth: 31}, d(2024, 2, 29)},
		{"monthly day 31 from 30-day month", d(2024, 4, 30), core.Monthly, 1, Options{DayOfMonth: 31}, d(2024, 5, 31)},
		{"monthly day 31 into 30-day month", d(2024, 5, 31), core.Monthly, 1, Options{DayOfMonth: 31}, d(2024, 6, 30)},
		{"monthly keeps own day", d(2024, 3, 15), core.Monthly, 1, Options{}, d(2024, 4, 15)},
		{"monthly interval 3", d(2024, 11, 10), core.Monthly, 3, Options{}, d(2025, 2, 10)},
		{"bimonthly across year", d(2024, 12, 31), core.Bimonthly, 1, Options{}, d(2025, 2, 28)},
		{"quarterly", d(2024, 11, 30), core.Quarterly, 1, Options{}, d(2025, 2, 28)},
		{"semiannually", d(2024, 8, 31), core.Semiannually, 1, Options{}, d(2025, 2, 28)},
		{"annually from leap day", d(2024, 2, 29), core.Annually, 1, Options{}, d(2025, 2, 28)},
		{"annually interval 4", d(2024, 2, 29), core.Annually, 4, Options{DayOfMonth: 29}, d(2028, 2, 29)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.from, tt.freq, tt.interval, tt.opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("NextOccurrence(%s) = %s, want %s", tt.from, got, tt.want)
			}
		})
	}
}

func TestNextOccurrenceErrors(t *testing.T) {
	if _, err := NextOccurrence(d(2024, 1, 1), core.Frequency("hourly"), 1, Options{}); !errors.Is(err, ErrUnsupportedFrequency) {
		t.Errorf("expected ErrUnsupportedFrequency, got %v", err)
	}
	if _, err := NextOccurrence(d(2024, 1, 1), core.Daily, -1, Options{}); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestNextOccurrenceIsStrictlyAfter(t *testing.T) {
	days := []int{0, 1, 15, 28, 29, 30, 31}
	weekdays := []*time.Weekday{nil, weekday(time.Sunday), weekday(time.Wednesday), weekday(time.Saturday)}

	for _, freq := range core.Frequencies() {
		for interval := 1; interval <= 3; interval++ {
			for from := d(2023, 12, 1); from.Before(d(2025, 1, 1)); from = from.AddDays(3) {
				for _, dom := range days {
					for _, dow := range weekdays {
						got, err := NextOccurrence(from, freq, interval, Options{DayOfMonth: dom, DayOfWeek: dow})
						if err != nil {
							t.Fatalf("%s: %v", freq, err)
						}
						if !got.After(from) {
							t.Fatalf("%s interval %d from %s (dom %d): got %s, not after", freq, interval, from, dom, got)
						}
					}
				}
			}
		}
	}
}

func TestRegisterCustomStepper(t *testing.T) {
	const fortnightly core.Frequency = "every_ten_days"
	Register(fortnightly, DayStepper{Days: 10})
	t.Cleanup(func() {
		mu.Lock()
		delete(steppers, fortnightly)
		mu.Unlock()
	})

	got, err := NextOccurrence(d(2024, 1, 1), fortnightly, 1, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(d(2024, 1, 11)) {
		t.Errorf("got %s, want 2024-01-11", got)
	}
}

func TestStartPinsMonthDay(t *testing.T) {
	desc, err := Start(core.RecurrenceDescriptor{Frequency: core.Monthly, AnchorDate: d(2024, 1, 31)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if desc.DayOfMonth != 31 || desc.Interval != 1 || !desc.Active {
		t.Errorf("unexpected descriptor: %+v", desc)
	}
	if !desc.NextOccurrence.Equal(d(2024, 1, 31)) {
		t.Errorf("next = %s, want anchor", desc.NextOccurrence)
	}

	if _, err := Start(core.RecurrenceDescriptor{Frequency: "hourly", AnchorDate: d(2024, 1, 1)}); !errors.Is(err, ErrUnsupportedFrequency) {
		t.Errorf("expected ErrUnsupportedFrequency, got %v", err)
	}
}

func TestAdvanceDeactivatesPastEndDate(t *testing.T) {
	desc, err := Start(core.RecurrenceDescriptor{
		Frequency:  core.Monthly,
		AnchorDate: d(2024, 1, 31),
		EndDate:    d(2024, 3, 31),
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	want := []core.Date{d(2024, 2, 29), d(2024, 3, 31)}
	for _, w := range want {
		desc, err = Advance(desc, desc.NextOccurrence)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if !desc.Active || !desc.NextOccurrence.Equal(w) {
			t.Fatalf("next = %s active=%v, want %s active", desc.NextOccurrence, desc.Active, w)
		}
	}

	desc, err = Advance(desc, desc.NextOccurrence)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if desc.Active {
		t.Error("expected descriptor to be deactivated past its end date")
	}
	if !desc.NextOccurrence.Equal(d(2024, 3, 31)) {
		t.Errorf("next occurrence changed on deactivation: %s", desc.NextOccurrence)
	}
}

func TestForecast(t *testing.T) {
	template := core.Transaction{
		ID: "tpl", Kind: core.Expense, Amount: core.Cents(-5000), AccountID: "acc", Category: "rent",
	}
	desc, err := Start(core.RecurrenceDescriptor{Frequency: core.Monthly, AnchorDate: d(2024, 1, 15)})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	template.Recurrence = &desc

	seq, err := Forecast(desc, template, d(2024, 5, 1))
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}

	first := Collect(seq, 0)
	if len(first) != 4 {
		t.Fatalf("got %d occurrences, want 4", len(first))
	}
	if !first[3].Date.Equal(d(2024, 4, 15)) {
		t.Errorf("last occurrence = %s, want 2024-04-15", first[3].Date)
	}
	inst := first[0].Instance
	if inst.TemplateID != "tpl" || inst.Recurrence != nil || !inst.OccurredAt.Equal(d(2024, 1, 15)) {
		t.Errorf("unexpected instance: %+v", inst)
	}
	if template.Recurrence == nil || template.ID != "tpl" {
		t.Error("template was modified")
	}

	if again := Collect(seq, 0); len(again) != len(first) {
		t.Errorf("sequence is not restartable: %d then %d", len(first), len(again))
	}
	if limited := Collect(seq, 2); len(limited) != 2 {
		t.Errorf("Collect limit: got %d, want 2", len(limited))
	}
}

func TestForecastBounds(t *testing.T) {
	desc, _ := Start(core.RecurrenceDescriptor{Frequency: core.Weekly, AnchorDate: d(2024, 1, 1), EndDate: d(2024, 1, 20)})

	dates, err := Dates(desc, d(2024, 12, 31))
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	if got := len(Collect(dates, 0)); got != 3 {
		t.Errorf("end date bound: got %d dates, want 3", got)
	}

	desc.Active = false
	dates, _ = Dates(desc, d(2024, 12, 31))
	if got := len(Collect(dates, 0)); got != 0 {
		t.Errorf("inactive descriptor yielded %d dates", got)
	}

	open, _ := Start(core.RecurrenceDescriptor{Frequency: core.Daily, AnchorDate: d(2024, 1, 1)})
	if _, err := Dates(open, core.Date{}); !errors.Is(err, ErrUnboundedForecast) {
		t.Errorf("expected ErrUnboundedForecast, got %v", err)
	}
}

func TestNextUsesEffectiveInterval(t *testing.T) {
	tests := []struct {
		name     string
		interval int
		want     core.Date
	}{
		{"unset", 0, d(2024, 2, 15)},
		{"one", 1, d(2024, 2, 15)},
		{"two", 2, d(2024, 3, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := core.RecurrenceDescriptor{Frequency: core.Monthly, Interval: tt.interval, AnchorDate: d(2024, 1, 15)}
			got, err := Next(desc, d(2024, 1, 15))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Next = %s, want %s", got, tt.want)
			}
		})
	}

	bad := core.RecurrenceDescriptor{Frequency: core.Monthly, Interval: -2, AnchorDate: d(2024, 1, 15)}
	if _, err := Next(bad, d(2024, 1, 15)); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
}
