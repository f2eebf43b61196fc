package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"conti/internal/core"
	"conti/internal/ledger"
)

var (
	accountName     string
	accountKind     string
	accountBalance  string
	accountCurrency string
	creditLimit     string
	creditRate      float64
	creditMinimum   string
	creditCutoff    int
	creditDue       int
)

// accountsCmd groups account management.
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts with their balances",
	Run:   runAccountsList,
}

var accountsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an account",
	Long: `Create an account with an opening balance.

Credit kinds (credit_card, auto_loan, personal_loan, mortgage) need credit
terms; their balance is negative while money is owed.

Example:
  conti accounts add --name Visa --kind credit_card --balance -1250 \
    --limit 5000 --rate 24.5 --minimum 50 --cutoff 5 --due 25`,
	Run: runAccountsAdd,
}

var accountsRenameCmd = &cobra.Command{
	Use:   "rename <account-id> <name>",
	Short: "Rename an account",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		updateAccount(args[0], core.RenameAccount{AccountID: args[0], Name: args[1]})
	},
}

var accountsTermsCmd = &cobra.Command{
	Use:   "terms <account-id>",
	Short: "Adjust the credit terms of a credit account",
	Args:  cobra.ExactArgs(1),
	Run:   runAccountsTerms,
}

var accountsDeactivateCmd = &cobra.Command{
	Use:   "deactivate <account-id>",
	Short: "Deactivate an account",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		updateAccount(args[0], core.DeactivateAccount{AccountID: args[0]})
	},
}

func init() {
	accountsAddCmd.Flags().StringVar(&accountName, "name", "", "account name")
	accountsAddCmd.Flags().StringVar(&accountKind, "kind", string(core.Checking), "account kind")
	accountsAddCmd.Flags().StringVar(&accountBalance, "balance", "0", "opening balance")
	accountsAddCmd.Flags().StringVar(&accountCurrency, "currency", "EUR", "ISO currency code")
	addCreditFlags(accountsAddCmd)
	_ = accountsAddCmd.MarkFlagRequired("name")

	addCreditFlags(accountsTermsCmd)

	accountsCmd.AddCommand(accountsListCmd, accountsAddCmd, accountsRenameCmd, accountsTermsCmd, accountsDeactivateCmd)
}

func addCreditFlags(c *cobra.Command) {
	c.Flags().StringVar(&creditLimit, "limit", "", "credit limit")
	c.Flags().Float64Var(&creditRate, "rate", 0, "annual interest rate in percent")
	c.Flags().StringVar(&creditMinimum, "minimum", "", "minimum monthly payment")
	c.Flags().IntVar(&creditCutoff, "cutoff", 0, "statement cutoff day of month")
	c.Flags().IntVar(&creditDue, "due", 0, "payment due day of month")
}

func runAccountsList(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	accounts, err := a.repo.ListAccounts(context.Background())
	exitOnError(err, "failed to list accounts")

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tKIND\tBALANCE\tAVAILABLE\tACTIVE")
	for _, acc := range accounts {
		available := "-"
		if acc.Credit != nil {
			available = acc.Credit.AvailableCredit.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s %s\t%s\t%v\n",
			acc.ID, acc.Name, acc.Kind, acc.Balance, acc.Currency, available, acc.Active)
	}
	w.Flush()
}

func runAccountsAdd(cmd *cobra.Command, args []string) {
	balance, err := core.ParseMoney(accountBalance)
	exitOnError(err, "invalid balance")

	kind := core.AccountKind(accountKind)
	var terms *core.CreditTerms
	if kind.IsCredit() {
		terms = &core.CreditTerms{InterestRate: creditRate, CutoffDay: creditCutoff, PaymentDueDay: creditDue}
		terms.CreditLimit, err = core.ParseMoney(creditLimit)
		exitOnError(err, "invalid credit limit")
		terms.MinimumPayment, err = core.ParseMoney(creditMinimum)
		exitOnError(err, "invalid minimum payment")
	}

	acc, err := core.NewAccount(accountName, kind, balance, accountCurrency, terms)
	exitOnError(err, "invalid account")

	a := openApp()
	defer a.Close()
	exitOnError(a.repo.CreateAccount(context.Background(), acc), "failed to create account")

	fmt.Println(acc.ID)
}

func runAccountsTerms(cmd *cobra.Command, args []string) {
	id := args[0]
	change := core.AdjustCreditTerms{AccountID: id}
	flags := cmd.Flags()

	if flags.Changed("limit") {
		m, err := core.ParseMoney(creditLimit)
		exitOnError(err, "invalid credit limit")
		change.CreditLimit = &m
	}
	if flags.Changed("minimum") {
		m, err := core.ParseMoney(creditMinimum)
		exitOnError(err, "invalid minimum payment")
		change.MinimumPayment = &m
	}
	if flags.Changed("rate") {
		change.InterestRate = &creditRate
	}
	if flags.Changed("cutoff") {
		change.CutoffDay = &creditCutoff
	}
	if flags.Changed("due") {
		change.PaymentDueDay = &creditDue
	}
	updateAccount(id, change)
}

func updateAccount(id string, change ledger.AccountCommand) {
	a := openApp()
	defer a.Close()

	acc, err := a.ledger.Ledger().UpdateAccount(context.Background(), id, change)
	exitOnError(err, "failed to update account")
	fmt.Printf("%s %s (%s) active=%v\n", acc.ID, acc.Name, acc.Kind, acc.Active)
}
