package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/recurrence"
)

const (
	// DefaultForecastHorizon applies when no horizon end is given.
	DefaultForecastHorizon = 30 * 24 * time.Hour

	// maxOccurrencesPerTemplate caps a single template's share of a
	// forecast, e.g. a daily template over a multi-year horizon.
	maxOccurrencesPerTemplate = 1000
)

// ForecastService projects upcoming occurrences of all active templates.
type ForecastService struct {
	store   ledger.Store
	clock   core.Clock
	horizon time.Duration
	logger  *log.Logger
}

func NewForecastService(store ledger.Store, clock core.Clock, horizon time.Duration) *ForecastService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if horizon <= 0 {
		horizon = DefaultForecastHorizon
	}
	return &ForecastService{
		store:   store,
		clock:   clock,
		horizon: horizon,
		logger:  log.Default(log.ComponentRecurring),
	}
}

// Upcoming merges the forecasts of every active template up to horizonEnd,
// sorted by date. A zero horizonEnd means now plus the configured horizon.
// Templates that cannot be forecast are logged and skipped.
func (s *ForecastService) Upcoming(ctx context.Context, horizonEnd core.Date) ([]recurrence.Occurrence, error) {
	if horizonEnd.IsZero() {
		horizonEnd = core.DateOf(s.clock.Now().Add(s.horizon))
	}

	var templates []core.Transaction
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		var err error
		templates, err = tx.ListTransactions(ctx, ledger.Filter{TemplatesOnly: true})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}

	var out []recurrence.Occurrence
	for _, tpl := range templates {
		d := *tpl.Recurrence
		if d.NextOccurrence.IsZero() {
			if d, err = recurrence.Start(d); err != nil {
				s.logger.WarnContext(ctx, "Skipping template in forecast",
					log.FieldOperation, log.OpForecast,
					log.FieldTemplateID, tpl.ID,
					log.FieldError, err)
				continue
			}
		}

		seq, err := recurrence.Forecast(d, tpl, horizonEnd)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping template in forecast",
				log.FieldOperation, log.OpForecast,
				log.FieldTemplateID, tpl.ID,
				log.FieldError, err)
			continue
		}
		out = append(out, recurrence.Collect(seq, maxOccurrencesPerTemplate)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Instance.TemplateID < out[j].Instance.TemplateID
	})
	return out, nil
}
