package payoff

import (
	"fmt"

	"github.com/shopspring/decimal"

	"conti/internal/core"
)

// maxScheduleMonths bounds a schedule to a century of payments.
const maxScheduleMonths = 1200

// Installment is one row of an amortisation table.
type Installment struct {
	Number    int
	Date      core.Date
	Payment   core.Money
	Interest  core.Money
	Principal core.Money
	Remaining core.Money
}

// Schedule builds the month-by-month table for paying debt with a fixed
// payment, first due on start. Interest is charged on the remaining balance
// and rounded to the cent each month; the final payment only covers what is
// left.
func Schedule(debt core.Money, monthlyRate float64, payment core.Money, start core.Date) ([]Installment, error) {
	remaining := debt.Abs()
	if remaining.IsZero() {
		return nil, nil
	}

	rate := decimal.NewFromFloat(monthlyRate)
	var rows []Installment
	for n := 1; !remaining.IsZero(); n++ {
		if n > maxScheduleMonths {
			return nil, fmt.Errorf("%w: not paid off after %d months", ErrPerpetualDebt, maxScheduleMonths)
		}

		interest := core.MoneyFromDecimal(remaining.Decimal().Mul(rate))
		if payment.Cmp(interest) <= 0 {
			return nil, fmt.Errorf("%w: payment %s against interest %s", ErrPerpetualDebt, payment, interest)
		}

		pay := payment
		principal := pay.Sub(interest)
		if principal.Cmp(remaining) > 0 {
			principal = remaining
			pay = remaining.Add(interest)
		}
		remaining = remaining.Sub(principal)

		rows = append(rows, Installment{
			Number:    n,
			Date:      start.AddMonthsClamped(n-1, start.Day()),
			Payment:   pay,
			Interest:  interest,
			Principal: principal,
			Remaining: remaining,
		})
	}
	return rows, nil
}

// TotalInterest sums the interest column of a schedule.
func TotalInterest(rows []Installment) core.Money {
	total := core.Zero
	for _, r := range rows {
		total = total.Add(r.Interest)
	}
	return total
}
