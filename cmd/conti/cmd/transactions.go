package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"conti/internal/core"
	"conti/internal/services"
)

var (
	txKind        string
	txAmount      string
	txAccount     string
	txCounterpart string
	txCategory    string
	txDescription string
	txDate        string

	recFrequency  string
	recInterval   int
	recEnd        string
	recDayOfMonth int
	recDayOfWeek  string
	recMaxCatchUp int
)

// applyCmd posts a one-off transaction.
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a transaction to the ledger",
	Long: `Apply a transaction to the ledger.

The amount is signed: negative debits the account, positive credits it.
For transfers the sign is ignored and --to names the receiving account.

Example:
  conti apply --kind expense --amount -42.50 --account <id> --category groceries
  conti apply --kind transfer --amount 300 --account <checking> --to <savings>`,
	Run: runApply,
}

var reverseCmd = &cobra.Command{
	Use:   "reverse <transaction-id>",
	Short: "Reverse an applied transaction",
	Args:  cobra.ExactArgs(1),
	Run:   runReverse,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule a recurring transaction",
	Long: `Schedule a recurring transaction. The first occurrence is --date;
the recurring-worker (or run-due) fires each occurrence when it comes due.

Frequencies: daily, weekly, biweekly, monthly, bimonthly, quarterly,
semiannually, annually.

Example:
  conti schedule --kind expense --amount -950 --account <id> \
    --category rent --frequency monthly --date 2025-01-31`,
	Run: runSchedule,
}

var runDueCmd = &cobra.Command{
	Use:   "run-due",
	Short: "Fire every recurring occurrence due today",
	Run:   runRunDue,
}

func init() {
	for _, c := range []*cobra.Command{applyCmd, scheduleCmd} {
		c.Flags().StringVar(&txKind, "kind", string(core.Expense), "income, expense, transfer, payment or adjustment")
		c.Flags().StringVar(&txAmount, "amount", "", "signed amount, e.g. -42.50")
		c.Flags().StringVar(&txAccount, "account", "", "account id")
		c.Flags().StringVar(&txCounterpart, "to", "", "receiving account id (transfers)")
		c.Flags().StringVar(&txCategory, "category", "", "category")
		c.Flags().StringVar(&txDescription, "description", "", "description")
		c.Flags().StringVar(&txDate, "date", "", "date YYYY-MM-DD (default today)")
		_ = c.MarkFlagRequired("amount")
		_ = c.MarkFlagRequired("account")
	}

	scheduleCmd.Flags().StringVar(&recFrequency, "frequency", string(core.Monthly), "recurrence frequency")
	scheduleCmd.Flags().IntVar(&recInterval, "interval", 1, "fire every N periods")
	scheduleCmd.Flags().StringVar(&recEnd, "end", "", "last possible date YYYY-MM-DD")
	scheduleCmd.Flags().IntVar(&recDayOfMonth, "day-of-month", 0, "day of month for month-based frequencies (default the start day)")
	scheduleCmd.Flags().StringVar(&recDayOfWeek, "day-of-week", "", "weekday for weekly frequencies, e.g. friday")

	runDueCmd.Flags().IntVar(&recMaxCatchUp, "max-catch-up", 0, "missed occurrences fired per template (default from config)")
}

func buildTransaction() core.Transaction {
	amount, err := core.ParseMoney(txAmount)
	exitOnError(err, "invalid amount")

	on := core.DateOf(time.Now())
	if txDate != "" {
		on, err = core.ParseDate(txDate)
		exitOnError(err, "invalid date")
	}

	t, err := core.NewTransaction(core.TransactionKind(txKind), amount, txAccount, txCounterpart, on)
	exitOnError(err, "invalid transaction")
	t.Category = txCategory
	t.Description = txDescription
	return t
}

func runApply(cmd *cobra.Command, args []string) {
	t := buildTransaction()

	a := openApp()
	defer a.Close()

	effect, err := a.ledger.Apply(context.Background(), t)
	exitOnError(err, "failed to apply transaction")

	fmt.Println(t.ID)
	for _, leg := range effect.Legs {
		fmt.Printf("  %s: %s -> %s\n", leg.AccountID, leg.Before, leg.After)
	}
}

func runReverse(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	inverse, err := a.ledger.Reverse(context.Background(), args[0])
	exitOnError(err, "failed to reverse transaction")
	fmt.Printf("reversed %s with %s\n", args[0], inverse.ID)
}

func runSchedule(cmd *cobra.Command, args []string) {
	t := buildTransaction()
	t.Recurrence = &core.RecurrenceDescriptor{
		Frequency:  core.Frequency(recFrequency),
		Interval:   recInterval,
		AnchorDate: t.OccurredAt,
		DayOfMonth: recDayOfMonth,
	}
	if recDayOfWeek != "" {
		wd, err := core.ParseWeekday(recDayOfWeek)
		exitOnError(err, "invalid day of week")
		t.Recurrence.DayOfWeek = &wd
	}
	if recEnd != "" {
		end, err := core.ParseDate(recEnd)
		exitOnError(err, "invalid end date")
		t.Recurrence.EndDate = end
	}

	a := openApp()
	defer a.Close()

	processor := services.NewRecurringProcessor(a.repo, a.ledger, nil, nil)
	tpl, err := processor.ScheduleTemplate(context.Background(), t)
	exitOnError(err, "failed to schedule recurring transaction")
	fmt.Printf("%s next %s\n", tpl.ID, tpl.Recurrence.NextOccurrence)
}

func runRunDue(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	processor := services.NewRecurringProcessor(a.repo, a.ledger, nil, nil)
	processor.SetMaxCatchUp(a.cfg.RecurringMaxCatchUp)
	if recMaxCatchUp > 0 {
		processor.SetMaxCatchUp(recMaxCatchUp)
	}

	fired, err := processor.ProcessDue(context.Background(), time.Now())
	exitOnError(err, "failed to process recurring transactions")
	fmt.Printf("fired %d occurrence(s)\n", fired)
}
