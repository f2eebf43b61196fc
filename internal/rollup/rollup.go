// Package rollup aggregates applied transactions by category. It reads
// through the ledger's filtered view and never touches balances.
package rollup

import (
	"context"
	"fmt"
	"sort"

	"conti/internal/core"
	"conti/internal/ledger"
)

// Reader is the read access the ledger exposes: applied, non-reversed
// transactions only.
type Reader interface {
	Transactions(ctx context.Context, f ledger.Filter) ([]core.Transaction, error)
}

// Result is the spend of one category over a window.
type Result struct {
	Category       string
	From           core.Date
	To             core.Date
	Count          int
	Total          core.Money
	Months         int
	MonthlyAverage core.Money
}

// Spend sums the absolute amounts of txs in category (all categories when
// empty) between from and to inclusive. Transfers move money between the
// owner's accounts and are not spend. The average divides by the number of
// calendar months the window touches.
func Spend(txs []core.Transaction, category string, from, to core.Date) Result {
	res := Result{Category: category, From: from, To: to, Months: monthsSpanned(from, to)}
	f := ledger.Filter{Category: category, From: from, To: to}

	for _, t := range txs {
		if t.Kind == core.Transfer || !f.Match(t) {
			continue
		}
		res.Total = res.Total.Add(t.Amount.Abs())
		res.Count++
	}
	if res.Months > 0 {
		res.MonthlyAverage = core.Cents(res.Total.Cents / int64(res.Months))
	}
	return res
}

// SpendFor loads the window from r and computes Spend over it.
func SpendFor(ctx context.Context, r Reader, category string, from, to core.Date) (Result, error) {
	txs, err := r.Transactions(ctx, ledger.Filter{Category: category, From: from, To: to})
	if err != nil {
		return Result{}, fmt.Errorf("load transactions: %w", err)
	}
	return Spend(txs, category, from, to), nil
}

func monthsSpanned(from, to core.Date) int {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return 1
	}
	return (to.Year()-from.Year())*12 + to.Month() - from.Month() + 1
}

type BudgetStatus string

const (
	UnderBudget BudgetStatus = "under"
	NearBudget  BudgetStatus = "near"
	OverBudget  BudgetStatus = "over"
)

// nearThreshold is the share of the limit at which spend counts as near.
const nearThreshold = 80

// Budget compares the monthly average of r against a monthly limit.
func Budget(r Result, limit core.Money) BudgetStatus {
	switch {
	case r.MonthlyAverage.Cmp(limit) > 0:
		return OverBudget
	case r.MonthlyAverage.Cents*100 >= limit.Cents*nearThreshold:
		return NearBudget
	default:
		return UnderBudget
	}
}

// MonthOverview groups one calendar month of spend by category, largest
// first.
func MonthOverview(ctx context.Context, r Reader, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}

	from := core.NewDate(year, month, 1)
	to := core.NewDate(year, month, core.DaysInMonth(year, month))
	txs, err := r.Transactions(ctx, ledger.Filter{From: from, To: to})
	if err != nil {
		return overview, fmt.Errorf("load transactions: %w", err)
	}

	sums := make(map[string]core.Money)
	for _, t := range txs {
		if t.Kind == core.Transfer {
			continue
		}
		amount := t.Amount.Abs()
		sums[t.Category] = sums[t.Category].Add(amount)
		overview.Total = overview.Total.Add(amount)
	}

	for name, amount := range sums {
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(overview.ByCategory, func(i, j int) bool {
		a, b := overview.ByCategory[i], overview.ByCategory[j]
		if a.Amount.Cmp(b.Amount) != 0 {
			return a.Amount.Cmp(b.Amount) > 0
		}
		return a.Name < b.Name
	})
	return overview, nil
}
