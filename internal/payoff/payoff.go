// Package payoff computes credit payoff scenarios. Every function is pure:
// inputs in, plan out, no I/O.
package payoff

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

type Strategy string

const (
	MinimumPayment Strategy = "minimum_payment"
	InterestFree   Strategy = "interest_free"
	CustomPeriod   Strategy = "custom_period"
)

var (
	// ErrInvalidPeriod is returned for custom periods shorter than a month
	ErrInvalidPeriod = errors.New("payoff: period must be at least one month")

	// ErrPerpetualDebt is returned when a schedule is requested for a
	// payment that never covers the interest
	ErrPerpetualDebt = errors.New("payoff: payment never covers interest")

	// ErrNotCreditAccount is returned when summarising a non-credit account
	ErrNotCreditAccount = errors.New("payoff: not a credit account")
)

// Plan is the outcome of one payoff strategy. When Perpetual is set the
// debt never shrinks: Months and TotalInterest are meaningless and the
// float accessors report +Inf.
type Plan struct {
	Strategy      Strategy
	Payment       core.Money
	Months        int
	TotalInterest core.Money
	Perpetual     bool
}

// MonthsToPayoff returns Months, or +Inf for a perpetual plan.
func (p Plan) MonthsToPayoff() float64 {
	if p.Perpetual {
		return math.Inf(1)
	}
	return float64(p.Months)
}

// InterestTotal returns TotalInterest in currency units, or +Inf for a
// perpetual plan.
func (p Plan) InterestTotal() float64 {
	if p.Perpetual {
		return math.Inf(1)
	}
	return p.TotalInterest.Float64()
}

// PaidOff reports whether the plan is the zero plan of an account with no
// debt.
func (p Plan) PaidOff() bool {
	return !p.Perpetual && p.Months == 0 && p.Payment.IsZero()
}

// MinimumPaymentPlan pays minimumPayment every month until debt is gone.
// If the payment does not exceed the monthly interest the plan is
// perpetual, which is a result and not an error.
func MinimumPaymentPlan(debt core.Money, monthlyRate float64, minimumPayment core.Money) Plan {
	debt = debt.Abs()
	if debt.IsZero() {
		return Plan{Strategy: MinimumPayment}
	}

	d, p := debt.Float64(), minimumPayment.Float64()
	plan := Plan{Strategy: MinimumPayment, Payment: minimumPayment}
	if p <= 0 || p <= monthlyRate*d {
		plan.Perpetual = true
		return plan
	}

	if monthlyRate == 0 {
		plan.Months = int(math.Ceil(d / p))
		return plan
	}

	plan.Months = int(math.Ceil(-math.Log(1-d*monthlyRate/p) / math.Log(1+monthlyRate)))
	plan.TotalInterest = core.Cents(minimumPayment.Cents*int64(plan.Months) - debt.Cents)
	return plan
}

// InterestFreePlan settles the whole debt before the next due date. The
// modelled card charges no interest on a balance paid in full within the
// grace period, so the interest is always zero.
func InterestFreePlan(debt core.Money, daysUntilDue int) Plan {
	debt = debt.Abs()
	if debt.IsZero() {
		return Plan{Strategy: InterestFree}
	}

	months := int(math.Ceil(float64(daysUntilDue) / 30))
	if months < 1 {
		months = 1
	}
	return Plan{Strategy: InterestFree, Payment: debt, Months: months}
}

// CustomPeriodPlan is a level-payment amortisation over months.
func CustomPeriodPlan(debt core.Money, monthlyRate float64, months int) (Plan, error) {
	debt = debt.Abs()
	if debt.IsZero() {
		return Plan{Strategy: CustomPeriod}, nil
	}
	if months < 1 {
		return Plan{}, fmt.Errorf("%w: %d", ErrInvalidPeriod, months)
	}

	plan := Plan{Strategy: CustomPeriod, Months: months}
	if monthlyRate == 0 {
		plan.Payment = core.MoneyFromDecimal(debt.Decimal().Div(decimal.NewFromInt(int64(months))))
		return plan, nil
	}

	d := debt.Float64()
	growth := math.Pow(1+monthlyRate, float64(months))
	payment := d * monthlyRate * growth / (growth - 1)
	plan.Payment = core.MoneyFromFloat(payment)
	plan.TotalInterest = core.MoneyFromFloat(payment*float64(months) - d)
	return plan, nil
}
