package core

import (
	"fmt"
	"strings"
	"time"
)

// Account edits arrive as explicit commands, each validated before it
// touches an Account. Balance is deliberately not editable here: it changes
// only through the ledger.

// RenameAccount changes an account's display name.
type RenameAccount struct {
	AccountID string
	Name      string
}

func (c RenameAccount) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAccount)
	}
	if len(name) > 100 {
		return fmt.Errorf("%w: name too long (max 100 characters)", ErrInvalidAccount)
	}
	return nil
}

func (c RenameAccount) ApplyTo(a *Account, at time.Time) error {
	if err := c.Validate(); err != nil {
		return err
	}
	a.Name = strings.TrimSpace(c.Name)
	a.UpdatedAt = at
	return nil
}

// AdjustCreditTerms replaces the terms of a credit account. Nil fields are
// left unchanged.
type AdjustCreditTerms struct {
	AccountID      string
	CreditLimit    *Money
	InterestRate   *float64
	MinimumPayment *Money
	CutoffDay      *int
	PaymentDueDay  *int
}

func (c AdjustCreditTerms) ApplyTo(a *Account, at time.Time) error {
	if a.Credit == nil {
		return fmt.Errorf("%w: %s account has no credit terms", ErrInvalidAccount, a.Kind)
	}
	terms := *a.Credit
	if c.CreditLimit != nil {
		terms.CreditLimit = *c.CreditLimit
	}
	if c.InterestRate != nil {
		terms.InterestRate = *c.InterestRate
	}
	if c.MinimumPayment != nil {
		terms.MinimumPayment = *c.MinimumPayment
	}
	if c.CutoffDay != nil {
		terms.CutoffDay = *c.CutoffDay
	}
	if c.PaymentDueDay != nil {
		terms.PaymentDueDay = *c.PaymentDueDay
	}
	if err := terms.Validate(); err != nil {
		return err
	}
	a.Credit = &terms
	a.RecomputeCredit()
	a.UpdatedAt = at
	return nil
}

// DeactivateAccount soft-deletes an account.
type DeactivateAccount struct {
	AccountID string
}

func (c DeactivateAccount) ApplyTo(a *Account, at time.Time) error {
	if !a.Active {
		return fmt.Errorf("%w: account %s already inactive", ErrInvalidAccount, a.ID)
	}
	a.Deactivate(at)
	return nil
}
