package payoff

import (
	"fmt"

	"conti/internal/core"
)

// Summary gathers every payoff scenario for one credit account.
type Summary struct {
	AccountID    string
	Debt         core.Money
	MonthlyRate  float64
	NextCutoff   core.Date
	NextPayment  core.Date
	DaysUntilDue int

	Minimum      Plan
	InterestFree Plan
	Custom       *Plan // nil unless a custom period was requested
}

// Summarize computes the scenarios for a. Days until the payment due date
// are derived from clock at call time rather than read from any stored
// field. customMonths <= 0 skips the custom-period plan.
func Summarize(a core.Account, clock core.Clock, customMonths int) (Summary, error) {
	if !a.Kind.IsCredit() || a.Credit == nil {
		return Summary{}, fmt.Errorf("%w: %s is %s", ErrNotCreditAccount, a.ID, a.Kind)
	}

	today := core.Today(clock)
	terms := *a.Credit
	s := Summary{
		AccountID:   a.ID,
		Debt:        a.Debt(),
		MonthlyRate: terms.MonthlyRate(),
		NextCutoff:  terms.NextCutoff(today),
		NextPayment: terms.NextPayment(today),
	}
	s.DaysUntilDue = today.DaysUntil(s.NextPayment)

	s.Minimum = MinimumPaymentPlan(s.Debt, s.MonthlyRate, terms.MinimumPayment)
	s.InterestFree = InterestFreePlan(s.Debt, s.DaysUntilDue)

	if customMonths > 0 {
		custom, err := CustomPeriodPlan(s.Debt, s.MonthlyRate, customMonths)
		if err != nil {
			return Summary{}, err
		}
		s.Custom = &custom
	}
	return s, nil
}
