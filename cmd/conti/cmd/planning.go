package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"conti/internal/core"
	"conti/internal/payoff"
	"conti/internal/recurrence"
	"conti/internal/rollup"
	"conti/internal/services"
)

var (
	nextFrom       string
	nextFrequency  string
	nextInterval   int
	nextDayOfMonth int
	nextCount      int

	forecastUntil string

	payoffMonths   int
	payoffSchedule bool

	spendCategory string
	spendFrom     string
	spendTo       string
	spendBudget   string

	overviewMonth string
)

// nextCmd is a pure calculation; it never opens the database.
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Compute the next occurrences of a schedule",
	Long: `Compute the next occurrences of a schedule starting from a date.

Month-based frequencies clamp to the last day of short months and return to
the requested day afterwards.

Example:
  conti next --from 2024-01-31 --frequency monthly --count 3`,
	Run: runNext,
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "List upcoming recurring transactions",
	Run:   runForecast,
}

var payoffCmd = &cobra.Command{
	Use:   "payoff <account-id>",
	Short: "Show payoff scenarios for a credit account",
	Args:  cobra.ExactArgs(1),
	Run:   runPayoff,
}

var spendCmd = &cobra.Command{
	Use:   "spend",
	Short: "Sum spend of a category over a date range",
	Run:   runSpend,
}

var overviewCmd = &cobra.Command{
	Use:   "overview",
	Short: "Spend by category for one month",
	Run:   runOverview,
}

func init() {
	nextCmd.Flags().StringVar(&nextFrom, "from", "", "start date YYYY-MM-DD (default today)")
	nextCmd.Flags().StringVar(&nextFrequency, "frequency", string(core.Monthly), "recurrence frequency")
	nextCmd.Flags().IntVar(&nextInterval, "interval", 1, "every N periods")
	nextCmd.Flags().IntVar(&nextDayOfMonth, "day-of-month", 0, "day of month for month-based frequencies (default the start day)")
	nextCmd.Flags().IntVar(&nextCount, "count", 1, "number of occurrences")

	forecastCmd.Flags().StringVar(&forecastUntil, "until", "", "last date YYYY-MM-DD (default today plus FORECAST_HORIZON)")

	payoffCmd.Flags().IntVar(&payoffMonths, "months", 0, "also compute a plan that pays off in this many months")
	payoffCmd.Flags().BoolVar(&payoffSchedule, "schedule", false, "print the month-by-month minimum payment table")

	spendCmd.Flags().StringVar(&spendCategory, "category", "", "category (default all)")
	spendCmd.Flags().StringVar(&spendFrom, "from", "", "first date YYYY-MM-DD")
	spendCmd.Flags().StringVar(&spendTo, "to", "", "last date YYYY-MM-DD (default today)")
	spendCmd.Flags().StringVar(&spendBudget, "budget", "", "monthly budget to compare the average against")
	_ = spendCmd.MarkFlagRequired("from")

	overviewCmd.Flags().StringVar(&overviewMonth, "month", "", "month YYYY-MM (default current month)")
}

func parseDateOr(s string, fallback core.Date) core.Date {
	if s == "" {
		return fallback
	}
	d, err := core.ParseDate(s)
	exitOnError(err, "invalid date "+s)
	return d
}

func runNext(cmd *cobra.Command, args []string) {
	from := parseDateOr(nextFrom, core.DateOf(time.Now()))
	opts := recurrence.Options{DayOfMonth: nextDayOfMonth}
	if opts.DayOfMonth == 0 && recurrence.IsMonthBased(core.Frequency(nextFrequency)) {
		opts.DayOfMonth = from.Day()
	}

	at := from
	for i := 0; i < nextCount; i++ {
		next, err := recurrence.NextOccurrence(at, core.Frequency(nextFrequency), nextInterval, opts)
		exitOnError(err, "cannot compute next occurrence")
		fmt.Println(next)
		at = next
	}
}

func runForecast(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	svc := services.NewForecastService(a.repo, nil, a.cfg.ForecastHorizon)
	upcoming, err := svc.Upcoming(context.Background(), parseDateOr(forecastUntil, core.Date{}))
	exitOnError(err, "failed to forecast")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tAMOUNT\tKIND\tCATEGORY\tDESCRIPTION\tTEMPLATE")
	total := core.Zero
	for _, o := range upcoming {
		inst := o.Instance
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.Date, inst.Amount, inst.Kind, inst.Category, inst.Description, inst.TemplateID)
		if inst.Kind != core.Transfer {
			total = total.Add(inst.Amount)
		}
	}
	w.Flush()
	fmt.Printf("\n%d occurrence(s), net %s\n", len(upcoming), total)
}

func runPayoff(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	svc := services.NewPayoffService(a.repo, nil)
	s, err := svc.Payoff(context.Background(), args[0], payoffMonths)
	exitOnError(err, "failed to compute payoff")

	fmt.Printf("Debt:            %s\n", s.Debt)
	fmt.Printf("Monthly rate:    %.4f%%\n", s.MonthlyRate*100)
	fmt.Printf("Next cutoff:     %s\n", s.NextCutoff)
	fmt.Printf("Next payment:    %s (%d days)\n", s.NextPayment, s.DaysUntilDue)
	fmt.Println()
	printPlan("Minimum payment", s.Minimum)
	printPlan("Interest free", s.InterestFree)
	if s.Custom != nil {
		printPlan(fmt.Sprintf("%d months", payoffMonths), *s.Custom)
	}

	if payoffSchedule && !s.Minimum.Perpetual && !s.Debt.IsZero() {
		rows, err := payoff.Schedule(s.Debt, s.MonthlyRate, s.Minimum.Payment, s.NextPayment)
		exitOnError(err, "failed to build schedule")

		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tDATE\tPAYMENT\tINTEREST\tPRINCIPAL\tREMAINING")
		for _, r := range rows {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", r.Number, r.Date, r.Payment, r.Interest, r.Principal, r.Remaining)
		}
		w.Flush()
	}
}

func printPlan(name string, p payoff.Plan) {
	if p.Perpetual {
		fmt.Printf("%-16s %s/month never pays off the debt\n", name+":", p.Payment)
		return
	}
	fmt.Printf("%-16s %s/month for %d months, interest %s\n", name+":", p.Payment, p.Months, p.TotalInterest)
}

func runSpend(cmd *cobra.Command, args []string) {
	from := parseDateOr(spendFrom, core.Date{})
	to := parseDateOr(spendTo, core.DateOf(time.Now()))

	a := openApp()
	defer a.Close()

	res, err := rollup.SpendFor(context.Background(), a.ledger.Ledger(), spendCategory, from, to)
	exitOnError(err, "failed to compute spend")

	category := res.Category
	if category == "" {
		category = "all categories"
	}
	fmt.Printf("%s from %s to %s\n", category, res.From, res.To)
	fmt.Printf("  %d transaction(s), total %s, monthly average %s over %d month(s)\n",
		res.Count, res.Total, res.MonthlyAverage, res.Months)

	if spendBudget != "" {
		limit, err := core.ParseMoney(spendBudget)
		exitOnError(err, "invalid budget")
		fmt.Printf("  budget %s: %s\n", limit, rollup.Budget(res, limit))
	}
}

func runOverview(cmd *cobra.Command, args []string) {
	month := time.Now()
	if overviewMonth != "" {
		var err error
		month, err = time.Parse("2006-01", overviewMonth)
		exitOnError(err, "invalid month")
	}

	a := openApp()
	defer a.Close()

	ov, err := rollup.MonthOverview(context.Background(), a.ledger.Ledger(), month.Year(), int(month.Month()))
	exitOnError(err, "failed to build overview")

	fmt.Printf("%04d-%02d total %s\n", ov.Year, ov.Month, ov.Total)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, c := range ov.ByCategory {
		name := c.Name
		if name == "" {
			name = "(uncategorised)"
		}
		fmt.Fprintf(w, "  %s\t%s\n", name, c.Amount)
	}
	w.Flush()
}
