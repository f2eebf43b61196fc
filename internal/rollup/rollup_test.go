package rollup

import (
	"context"
	"testing"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/storage/memory"
)

func tx(kind core.TransactionKind, cents int64, category string, on core.Date) core.Transaction {
	t := core.Transaction{
		ID: category + on.String(), Kind: kind, Amount: core.Cents(cents), AccountID: "acc",
		Category: category, OccurredAt: on, Status: core.StatusPosted,
	}
	if kind == core.Transfer {
		t.CounterpartyID = "other"
	}
	return t
}

func TestSpend(t *testing.T) {
	txs := []core.Transaction{
		tx(core.Expense, -3000, "food", core.NewDate(2024, 1, 5)),
		tx(core.Expense, -1500, "food", core.NewDate(2024, 2, 10)),
		tx(core.Expense, -1500, "food", core.NewDate(2024, 3, 31)),
		tx(core.Expense, -9999, "food", core.NewDate(2024, 4, 1)),
		tx(core.Expense, -5000, "rent", core.NewDate(2024, 2, 1)),
		tx(core.Transfer, 7000, "food", core.NewDate(2024, 2, 2)),
	}

	res := Spend(txs, "food", core.NewDate(2024, 1, 1), core.NewDate(2024, 3, 31))
	if res.Count != 3 || res.Total.Cents != 6000 {
		t.Fatalf("got count=%d total=%d, want 3 and 6000", res.Count, res.Total.Cents)
	}
	if res.Months != 3 || res.MonthlyAverage.Cents != 2000 {
		t.Errorf("got months=%d average=%d, want 3 and 2000", res.Months, res.MonthlyAverage.Cents)
	}

	all := Spend(txs, "", core.NewDate(2024, 1, 1), core.NewDate(2024, 3, 31))
	if all.Total.Cents != 11000 {
		t.Errorf("all categories total = %d, want 11000", all.Total.Cents)
	}
}

func TestBudget(t *testing.T) {
	limit := core.Cents(10000)
	tests := []struct {
		avg  int64
		want BudgetStatus
	}{
		{5000, UnderBudget},
		{7999, UnderBudget},
		{8000, NearBudget},
		{10000, NearBudget},
		{10001, OverBudget},
	}
	for _, tt := range tests {
		if got := Budget(Result{MonthlyAverage: core.Cents(tt.avg)}, limit); got != tt.want {
			t.Errorf("avg %d: got %s, want %s", tt.avg, got, tt.want)
		}
	}
}

func TestRollupThroughLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	l := ledger.New(store,
		ledger.WithClock(core.FixedClock{T: time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)}),
		ledger.WithLogger(log.Discard()))

	acc, err := core.NewAccount("Conto", core.Checking, core.Cents(100000), "EUR", nil)
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	if err := store.CreateAccount(ctx, acc); err != nil {
		t.Fatalf("create account: %v", err)
	}

	apply := func(cents int64, category string, day int) core.Transaction {
		t.Helper()
		tr, err := core.NewTransaction(core.Expense, core.Cents(cents), acc.ID, "", core.NewDate(2024, 5, day))
		if err != nil {
			t.Fatalf("new transaction: %v", err)
		}
		tr.Category = category
		if _, err := l.Apply(ctx, tr); err != nil {
			t.Fatalf("apply: %v", err)
		}
		return tr
	}

	apply(-4000, "food", 3)
	apply(-2500, "food", 12)
	apply(-9000, "rent", 1)
	reversed := apply(-1000, "fun", 7)
	if _, err := l.Reverse(ctx, reversed.ID); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	overview, err := MonthOverview(ctx, l, 2024, 5)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.Total.Cents != 15500 {
		t.Errorf("total = %d, want 15500", overview.Total.Cents)
	}
	if len(overview.ByCategory) != 2 {
		t.Fatalf("categories = %+v, want rent and food only", overview.ByCategory)
	}
	if overview.ByCategory[0].Name != "rent" || overview.ByCategory[1].Amount.Cents != 6500 {
		t.Errorf("unexpected ordering: %+v", overview.ByCategory)
	}

	res, err := SpendFor(ctx, l, "food", core.NewDate(2024, 5, 1), core.NewDate(2024, 5, 31))
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	if res.Total.Cents != 6500 || res.Count != 2 {
		t.Errorf("food spend = %+v", res)
	}
}
