package services

import (
	"context"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/payoff"
)

// PayoffService computes payoff scenarios for stored credit accounts.
type PayoffService struct {
	store ledger.Store
	clock core.Clock
}

func NewPayoffService(store ledger.Store, clock core.Clock) *PayoffService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &PayoffService{store: store, clock: clock}
}

// Payoff loads accountID and summarizes its payoff plans. customMonths <= 0
// skips the custom-period plan.
func (s *PayoffService) Payoff(ctx context.Context, accountID string, customMonths int) (payoff.Summary, error) {
	var account core.Account
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		var err error
		account, err = tx.LoadAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return payoff.Summary{}, err
	}
	return payoff.Summarize(account, s.clock, customMonths)
}
