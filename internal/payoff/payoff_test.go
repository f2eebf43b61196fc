package payoff

import (
	"errors"
	"math"
	"testing"
	"time"

	"conti/internal/core"
)

func euros(e int64) core.Money { return core.Cents(e * 100) }

func TestMinimumPaymentPlan(t *testing.T) {
	tests := []struct {
		name         string
		debt         core.Money
		rate         float64
		payment      core.Money
		wantMonths   int
		wantInterest core.Money
		perpetual    bool
	}{
		{"payment above interest", euros(10000), 0.02, euros(250), 82, euros(10500), false},
		{"payment below interest", euros(10000), 0.02, euros(150), 0, core.Zero, true},
		{"payment below interest accrual", euros(10000), 0.02, euros(100), 0, core.Zero, true},
		{"payment equals interest", euros(10000), 0.02, euros(200), 0, core.Zero, true},
		{"zero payment", euros(10000), 0.02, core.Zero, 0, core.Zero, true},
		{"zero rate", euros(1000), 0, euros(300), 4, core.Zero, false},
		{"negative balance as debt", euros(-10000), 0.02, euros(250), 82, euros(10500), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := MinimumPaymentPlan(tt.debt, tt.rate, tt.payment)
			if plan.Perpetual != tt.perpetual {
				t.Fatalf("Perpetual = %v, want %v", plan.Perpetual, tt.perpetual)
			}
			if tt.perpetual {
				if !math.IsInf(plan.MonthsToPayoff(), 1) || !math.IsInf(plan.InterestTotal(), 1) {
					t.Errorf("perpetual plan should report +Inf, got %v months, %v interest", plan.MonthsToPayoff(), plan.InterestTotal())
				}
				return
			}
			if plan.Months != tt.wantMonths {
				t.Errorf("Months = %d, want %d", plan.Months, tt.wantMonths)
			}
			if plan.TotalInterest != tt.wantInterest {
				t.Errorf("TotalInterest = %s, want %s", plan.TotalInterest, tt.wantInterest)
			}
			if math.IsInf(plan.MonthsToPayoff(), 0) {
				t.Error("finite plan reported infinite months")
			}
		})
	}
}

func TestFinitePlanHasPositiveInterest(t *testing.T) {
	plan := MinimumPaymentPlan(euros(10000), 0.02, euros(250))
	if plan.Perpetual || plan.InterestTotal() <= 0 {
		t.Fatalf("expected finite plan with positive interest, got %+v", plan)
	}
}

func TestInterestFreePlan(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{0, 1},
		{-3, 1},
		{1, 1},
		{30, 1},
		{31, 2},
		{45, 2},
		{61, 3},
	}
	for _, tt := range tests {
		plan := InterestFreePlan(euros(500), tt.days)
		if plan.Months != tt.want {
			t.Errorf("days %d: Months = %d, want %d", tt.days, plan.Months, tt.want)
		}
		if plan.Payment != euros(500) || !plan.TotalInterest.IsZero() {
			t.Errorf("days %d: unexpected plan %+v", tt.days, plan)
		}
	}
}

func TestCustomPeriodPlan(t *testing.T) {
	plan, err := CustomPeriodPlan(euros(10000), 0, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Payment != euros(1000) || !plan.TotalInterest.IsZero() {
		t.Errorf("zero rate plan = %+v, want payment 1000 and no interest", plan)
	}

	plan, err = CustomPeriodPlan(euros(1200), 0.01, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Payment != core.Cents(10662) {
		t.Errorf("Payment = %s, want 106.62", plan.Payment)
	}
	if plan.TotalInterest != core.Cents(7942) {
		t.Errorf("TotalInterest = %s, want 79.42", plan.TotalInterest)
	}

	if _, err := CustomPeriodPlan(euros(100), 0.01, 0); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestZeroDebtIsZeroPlan(t *testing.T) {
	custom, err := CustomPeriodPlan(core.Zero, 0.02, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plans := []Plan{
		MinimumPaymentPlan(core.Zero, 0.02, euros(50)),
		InterestFreePlan(core.Zero, 20),
		custom,
	}
	for _, p := range plans {
		if !p.PaidOff() || p.Perpetual || !p.TotalInterest.IsZero() {
			t.Errorf("%s: expected zero plan, got %+v", p.Strategy, p)
		}
	}
}

func TestSchedule(t *testing.T) {
	rows, err := Schedule(euros(1000), 0.01, euros(300), core.NewDate(2024, 1, 31))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}

	wantInterest := []int64{1000, 710, 417, 121}
	wantDates := []core.Date{
		core.NewDate(2024, 1, 31), core.NewDate(2024, 2, 29),
		core.NewDate(2024, 3, 31), core.NewDate(2024, 4, 30),
	}
	for i, r := range rows {
		if r.Interest.Cents != wantInterest[i] {
			t.Errorf("row %d: interest = %d, want %d", i+1, r.Interest.Cents, wantInterest[i])
		}
		if !r.Date.Equal(wantDates[i]) {
			t.Errorf("row %d: date = %s, want %s", i+1, r.Date, wantDates[i])
		}
	}

	last := rows[3]
	if !last.Remaining.IsZero() || last.Payment.Cents != 12248 {
		t.Errorf("last row = %+v, want payment 122.48 and nothing remaining", last)
	}
	if got := TotalInterest(rows); got.Cents != 2248 {
		t.Errorf("total interest = %d, want 2248", got.Cents)
	}

	if _, err := Schedule(euros(1000), 0.02, euros(20), core.NewDate(2024, 1, 1)); !errors.Is(err, ErrPerpetualDebt) {
		t.Errorf("expected ErrPerpetualDebt, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	clock := core.FixedClock{T: time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)}
	card := core.Account{
		ID:      "card",
		Kind:    core.CreditCard,
		Balance: euros(-1000),
		Credit: &core.CreditTerms{
			CreditLimit:    euros(3000),
			InterestRate:   24,
			MinimumPayment: euros(25),
			CutoffDay:      5,
			PaymentDueDay:  20,
		},
	}

	s, err := Summarize(card, clock, 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Debt != euros(1000) {
		t.Errorf("Debt = %s, want 1000.00", s.Debt)
	}
	if !s.NextPayment.Equal(core.NewDate(2024, 6, 20)) || s.DaysUntilDue != 5 {
		t.Errorf("next payment = %s in %d days", s.NextPayment, s.DaysUntilDue)
	}
	if !s.NextCutoff.Equal(core.NewDate(2024, 7, 5)) {
		t.Errorf("next cutoff = %s, want 2024-07-05", s.NextCutoff)
	}
	if s.Minimum.Perpetual || s.Minimum.Months != 82 {
		t.Errorf("minimum plan = %+v", s.Minimum)
	}
	if s.InterestFree.Months != 1 || s.InterestFree.Payment != euros(1000) {
		t.Errorf("interest-free plan = %+v", s.InterestFree)
	}
	if s.Custom == nil || s.Custom.Months != 12 {
		t.Errorf("custom plan = %+v", s.Custom)
	}

	checking := core.Account{ID: "c", Kind: core.Checking, Balance: euros(10)}
	if _, err := Summarize(checking, clock, 0); !errors.Is(err, ErrNotCreditAccount) {
		t.Errorf("expected ErrNotCreditAccount, got %v", err)
	}
}
