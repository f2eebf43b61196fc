package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Checking     AccountKind = "checking"
	Savings      AccountKind = "savings"
	Cash         AccountKind = "cash"
	Investment   AccountKind = "investment"
	CreditCard   AccountKind = "credit_card"
	AutoLoan     AccountKind = "auto_loan"
	PersonalLoan AccountKind = "personal_loan"
	Mortgage     AccountKind = "mortgage"
)

const (
	Income     TransactionKind = "income"
	Expense    TransactionKind = "expense"
	Transfer   TransactionKind = "transfer"
	Payment    TransactionKind = "payment"
	Adjustment TransactionKind = "adjustment"
)

const (
	StatusPending   TransactionStatus = "pending"
	StatusPosted    TransactionStatus = "posted"
	StatusPaid      TransactionStatus = "paid"
	StatusCancelled TransactionStatus = "cancelled"
)

const (
	Daily        Frequency = "daily"
	Weekly       Frequency = "weekly"
	Biweekly     Frequency = "biweekly"
	Monthly      Frequency = "monthly"
	Bimonthly    Frequency = "bimonthly"
	Quarterly    Frequency = "quarterly"
	Semiannually Frequency = "semiannually"
	Annually     Frequency = "annually"
)

type (
	AccountKind       string
	TransactionKind   string
	TransactionStatus string
	Frequency         string

	// Account is a monetary account. Balance is the single source of truth
	// and only the ledger mutates it.
	Account struct {
		ID        string
		Name      string
		Kind      AccountKind
		Balance   Money
		Currency  string
		Credit    *CreditTerms // present iff Kind.IsCredit()
		Active    bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// CreditTerms belong to credit accounts. InterestRate is an annual
	// percentage; CutoffDay and PaymentDueDay are day-of-month anchors.
	CreditTerms struct {
		CreditLimit     Money
		InterestRate    float64
		MinimumPayment  Money
		CutoffDay       int
		PaymentDueDay   int
		AvailableCredit Money
	}

	// Transaction is an immutable record of a monetary event. Once applied
	// only its status and reversal linkage change.
	Transaction struct {
		ID             string
		Kind           TransactionKind
		Amount         Money // positive = credit, negative = debit, never zero
		AccountID      string
		CounterpartyID string // transfers only: the receiving account
		Category       string
		Description    string
		OccurredAt     Date
		Status         TransactionStatus
		Recurrence     *RecurrenceDescriptor
		Installment    *InstallmentInfo
		AppliedAt      time.Time
		ReversalOf     string
		ReversedBy     string
		TemplateID     string // set on instances fired from a recurring template
		CreatedAt      time.Time
	}

	// InstallmentInfo describes a purchase split into installments on a
	// credit product.
	InstallmentInfo struct {
		Number       int
		Total        int
		InterestRate float64
	}

	// RecurrenceDescriptor schedules a recurring transaction.
	RecurrenceDescriptor struct {
		Frequency      Frequency
		Interval       int
		AnchorDate     Date
		EndDate        Date // zero means open ended
		NextOccurrence Date
		DayOfMonth     int           // 0 means unset
		DayOfWeek      *time.Weekday // nil means unset
		Active         bool
	}
)

var (
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidTransactionShape covers zero amounts, transfers without a
	// distinct counterparty and counterparties on non-transfers.
	ErrInvalidTransactionShape = errors.New("invalid transaction shape")
	ErrInvalidAccount          = errors.New("invalid account")
	ErrInvalidRecurrence       = errors.New("invalid recurrence")
)

var accountKinds = map[AccountKind]bool{
	Checking: false, Savings: false, Cash: false, Investment: false,
	CreditCard: true, AutoLoan: true, PersonalLoan: true, Mortgage: true,
}

// Valid reports whether k is a known account kind.
func (k AccountKind) Valid() bool {
	_, ok := accountKinds[k]
	return ok
}

// IsCredit reports whether k is a credit product, the only kinds allowed to
// hold a negative balance.
func (k AccountKind) IsCredit() bool {
	return accountKinds[k]
}

func (k TransactionKind) Valid() bool {
	switch k {
	case Income, Expense, Transfer, Payment, Adjustment:
		return true
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPosted, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// Frequencies lists every supported recurrence frequency.
func Frequencies() []Frequency {
	return []Frequency{Daily, Weekly, Biweekly, Monthly, Bimonthly, Quarterly, Semiannually, Annually}
}

// NewAccount builds an active account with a fresh id.
func NewAccount(name string, kind AccountKind, balance Money, currency string, credit *CreditTerms) (Account, error) {
	now := time.Now().UTC()
	a := Account{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		Kind:      kind,
		Balance:   balance,
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
		Credit:    credit,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.RecomputeCredit()
	if err := a.Validate(); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidAccount)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAccount, a.Kind)
	}
	if a.Kind.IsCredit() != (a.Credit != nil) {
		return fmt.Errorf("%w: credit terms must be present iff kind is a credit product", ErrInvalidAccount)
	}
	if !a.Kind.IsCredit() && a.Balance.IsNegative() {
		return fmt.Errorf("%w: negative balance on %s account", ErrInvalidAccount, a.Kind)
	}
	if a.Credit != nil {
		if err := a.Credit.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RecomputeCredit refreshes the derived available credit. It must run after
// every balance change.
func (a *Account) RecomputeCredit() {
	if a.Credit != nil {
		a.Credit.AvailableCredit = a.Credit.CreditLimit.Add(a.Balance)
	}
}

// Deactivate soft-deletes the account. Accounts referenced by transactions
// are never hard-deleted.
func (a *Account) Deactivate(at time.Time) {
	a.Active = false
	a.UpdatedAt = at
}

// Debt is the amount owed on a credit account: the absolute value of a
// negative balance, zero otherwise.
func (a Account) Debt() Money {
	if a.Balance.IsNegative() {
		return a.Balance.Abs()
	}
	return Zero
}

func (c CreditTerms) Validate() error {
	if c.CreditLimit.IsNegative() {
		return fmt.Errorf("%w: negative credit limit", ErrInvalidAccount)
	}
	if c.InterestRate < 0 {
		return fmt.Errorf("%w: negative interest rate", ErrInvalidAccount)
	}
	if c.MinimumPayment.IsNegative() {
		return fmt.Errorf("%w: negative minimum payment", ErrInvalidAccount)
	}
	if c.CutoffDay < 1 || c.CutoffDay > 31 {
		return fmt.Errorf("%w: cutoff day %d", ErrInvalidDay, c.CutoffDay)
	}
	if c.PaymentDueDay < 1 || c.PaymentDueDay > 31 {
		return fmt.Errorf("%w: payment due day %d", ErrInvalidDay, c.PaymentDueDay)
	}
	return nil
}

// MonthlyRate converts the annual percentage into a monthly fraction.
func (c CreditTerms) MonthlyRate() float64 {
	return c.InterestRate / 100 / 12
}

// NextCutoff returns the next statement cutoff on or after today.
func (c CreditTerms) NextCutoff(today Date) Date {
	return NextDayOfMonthOnOrAfter(today, c.CutoffDay)
}

// NextPayment returns the next payment due date on or after today.
func (c CreditTerms) NextPayment(today Date) Date {
	return NextDayOfMonthOnOrAfter(today, c.PaymentDueDay)
}

// NewTransaction builds a pending transaction with a fresh id and validates
// its shape. Shape errors are caught here, before the ledger sees them.
func NewTransaction(kind TransactionKind, amount Money, accountID, counterpartyID string, occurredAt Date) (Transaction, error) {
	t := Transaction{
		ID:             uuid.NewString(),
		Kind:           kind,
		Amount:         amount,
		AccountID:      accountID,
		CounterpartyID: counterpartyID,
		OccurredAt:     occurredAt,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidTransactionShape)
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTransactionShape, t.Kind)
	}
	if t.Amount.IsZero() {
		return fmt.Errorf("%w: zero amount", ErrInvalidTransactionShape)
	}
	if t.Amount.ValidateNonZero() != nil {
		return fmt.Errorf("%w: amount out of range", ErrInvalidTransactionShape)
	}
	if strings.TrimSpace(t.AccountID) == "" {
		return fmt.Errorf("%w: missing account", ErrInvalidTransactionShape)
	}
	if t.Kind == Transfer {
		if t.CounterpartyID == "" {
			return fmt.Errorf("%w: transfer without counterparty", ErrInvalidTransactionShape)
		}
		if t.CounterpartyID == t.AccountID {
			return fmt.Errorf("%w: transfer to the same account", ErrInvalidTransactionShape)
		}
	} else if t.CounterpartyID != "" {
		return fmt.Errorf("%w: counterparty on a %s", ErrInvalidTransactionShape, t.Kind)
	}
	if t.Status != "" && !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransactionShape, t.Status)
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalidTransactionShape)
	}
	if t.Recurrence != nil {
		if err := t.Recurrence.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsApplied reports whether the ledger has applied t.
func (t Transaction) IsApplied() bool {
	return !t.AppliedAt.IsZero()
}

// AccountIDs returns the accounts t touches, primary first.
func (t Transaction) AccountIDs() []string {
	if t.Kind == Transfer {
		return []string{t.AccountID, t.CounterpartyID}
	}
	return []string{t.AccountID}
}

// IsTemplate reports whether t is a recurring template rather than a
// one-off entry.
func (t Transaction) IsTemplate() bool {
	return t.Recurrence != nil
}

func (re RecurrenceDescriptor) Validate() error {
	if err := re.AnchorDate.Validate(); err != nil {
		return fmt.Errorf("%w: invalid anchor date: %v", ErrInvalidRecurrence, err)
	}

	if !re.EndDate.IsZero() {
		if err := re.EndDate.Validate(); err != nil {
			return fmt.Errorf("%w: invalid end date: %v", ErrInvalidRecurrence, err)
		}
		if re.EndDate.Before(re.AnchorDate) {
			return fmt.Errorf("%w: end date must not be before anchor date", ErrInvalidRecurrence)
		}
	}

	if re.Interval < 0 {
		return fmt.Errorf("%w: negative interval %d", ErrInvalidRecurrence, re.Interval)
	}
	if re.DayOfMonth < 0 || re.DayOfMonth > 31 {
		return fmt.Errorf("%w: day of month %d", ErrInvalidRecurrence, re.DayOfMonth)
	}
	if re.DayOfWeek != nil && (*re.DayOfWeek < time.Sunday || *re.DayOfWeek > time.Saturday) {
		return fmt.Errorf("%w: day of week %d", ErrInvalidRecurrence, *re.DayOfWeek)
	}
	return nil
}

// EffectiveInterval returns Interval, defaulting to 1.
func (re RecurrenceDescriptor) EffectiveInterval() int {
	if re.Interval <= 0 {
		return 1
	}
	return re.Interval
}
