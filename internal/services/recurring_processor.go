package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/metrics"
	"conti/internal/recurrence"
)

// DefaultMaxCatchUp bounds how many missed occurrences of one template a
// single run fires.
const DefaultMaxCatchUp = 64

// instanceNamespace seeds the deterministic ids of fired instances, so a
// run interrupted between applying an instance and advancing its template
// does not fire the same occurrence twice.
var instanceNamespace = uuid.MustParse("6f1c5a0e-3b7d-4c52-9a8e-2d4f1b7c9e30")

// Applier posts instances to the ledger. *LedgerService and *ledger.Ledger
// both satisfy it.
type Applier interface {
	Apply(ctx context.Context, t core.Transaction) (ledger.AppliedEffect, error)
}

// RecurringProcessor fires due recurring templates.
type RecurringProcessor struct {
	store      ledger.Store
	applier    Applier
	clock      core.Clock
	metrics    metrics.Collector
	logger     *log.Logger
	maxCatchUp int
}

// NewRecurringProcessor creates a processor firing through applier.
// collector may be nil.
func NewRecurringProcessor(store ledger.Store, applier Applier, clock core.Clock, collector metrics.Collector) *RecurringProcessor {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &RecurringProcessor{
		store:      store,
		applier:    applier,
		clock:      clock,
		metrics:    collector,
		logger:     log.Default(log.ComponentRecurring),
		maxCatchUp: DefaultMaxCatchUp,
	}
}

// SetMaxCatchUp overrides DefaultMaxCatchUp. Values below 1 are ignored.
func (p *RecurringProcessor) SetMaxCatchUp(n int) {
	if n > 0 {
		p.maxCatchUp = n
	}
}

// ScheduleTemplate validates and stores a recurring template. The template
// is never applied itself; ProcessDue fires instances of it.
func (p *RecurringProcessor) ScheduleTemplate(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Recurrence == nil {
		return t, fmt.Errorf("%w: template without recurrence", core.ErrInvalidTransactionShape)
	}
	d, err := recurrence.Start(*t.Recurrence)
	if err != nil {
		return t, err
	}
	t.Recurrence = &d
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.Status = core.StatusPending
	t.AppliedAt = time.Time{}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = p.clock.Now().UTC()
	}
	if err := t.Validate(); err != nil {
		return t, err
	}

	err = p.store.Update(ctx, func(tx ledger.Tx) error {
		for _, id := range t.AccountIDs() {
			if _, err := tx.LoadAccount(ctx, id); err != nil {
				return err
			}
		}
		return tx.SaveTransaction(ctx, t)
	})
	if err != nil {
		return t, fmt.Errorf("schedule template: %w", err)
	}

	p.logger.InfoContext(ctx, "Recurring template scheduled",
		log.FieldTemplateID, t.ID,
		log.FieldFrequency, string(d.Frequency),
		log.FieldOccurrence, d.NextOccurrence.String(),
		log.FieldAmountCents, t.Amount.Cents)
	return t, nil
}

// ProcessDue fires every occurrence of every active template that falls on
// or before now's date, oldest first, at most maxCatchUp per template.
// Failures of one template are logged and do not stop the others. It
// returns the number of instances fired.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.applier == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	var templates []core.Transaction
	err := p.store.View(ctx, func(tx ledger.Tx) error {
		var err error
		templates, err = tx.ListTransactions(ctx, ledger.Filter{TemplatesOnly: true})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list recurring templates: %w", err)
	}

	today := core.DateOf(now)
	p.logger.InfoContext(ctx, "Processing recurring templates",
		"total_active", len(templates),
		"processing_date", today.String())

	fired := 0
	for _, tpl := range templates {
		if err := ctx.Err(); err != nil {
			return fired, err
		}

		n, err := p.processTemplate(ctx, tpl, today, now)
		fired += n
		if err != nil {
			p.logger.ErrorContext(ctx, "Failed to process recurring template",
				log.FieldTemplateID, tpl.ID,
				log.FieldError, err)
		}
	}

	p.logger.InfoContext(ctx, "Recurring processing complete",
		"fired", fired,
		"total_checked", len(templates))
	return fired, nil
}

func (p *RecurringProcessor) processTemplate(ctx context.Context, tpl core.Transaction, today core.Date, now time.Time) (int, error) {
	d := *tpl.Recurrence
	changed := false
	if d.NextOccurrence.IsZero() {
		started, err := recurrence.Start(d)
		if err != nil {
			return 0, err
		}
		d, changed = started, true
	}

	// advanced counts occurrences moved past, fired only those applied now.
	fired, advanced := 0, 0
	var fireErr error
	for d.Active && !d.NextOccurrence.After(today) && advanced < p.maxCatchUp {
		on := d.NextOccurrence
		if !d.EndDate.IsZero() && on.After(d.EndDate) {
			d.Active = false
			changed = true
			break
		}

		inst := recurrence.Instance(tpl, on)
		inst.ID = instanceID(tpl.ID, on)
		inst.CreatedAt = now.UTC()

		_, err := p.applier.Apply(ctx, inst)
		applied := err == nil
		switch {
		case applied:
			p.metrics.RecordRecurringFired(string(d.Frequency), true)
			p.logger.InfoContext(ctx, "Fired recurring instance",
				log.FieldTemplateID, tpl.ID,
				log.FieldTransactionID, inst.ID,
				log.FieldOccurrence, on.String(),
				log.FieldAmountCents, inst.Amount.Cents)
		case errors.Is(err, ledger.ErrAlreadyApplied), errors.Is(err, ledger.ErrAlreadyCancelled):
			// Fired by an earlier run that stopped before advancing.
			p.logger.WarnContext(ctx, "Recurring instance already fired",
				log.FieldTemplateID, tpl.ID,
				log.FieldOccurrence, on.String())
		default:
			p.metrics.RecordRecurringFired(string(d.Frequency), false)
			fireErr = fmt.Errorf("fire occurrence %s: %w", on, err)
		}
		if fireErr != nil {
			break
		}

		next, err := recurrence.Advance(d, on)
		if err != nil {
			fireErr = err
			break
		}
		d = next
		changed = true
		advanced++
		if applied {
			fired++
		}

		if !d.Active {
			p.metrics.RecordTemplateDeactivated(string(d.Frequency))
			p.logger.InfoContext(ctx, "Recurring template reached its end date",
				log.FieldTemplateID, tpl.ID,
				log.FieldOccurrence, on.String())
		}
	}

	if d.Active && advanced == p.maxCatchUp && !d.NextOccurrence.After(today) {
		p.logger.WarnContext(ctx, "Catch-up limit reached, remaining occurrences fire on the next run",
			log.FieldTemplateID, tpl.ID,
			log.FieldOccurrence, d.NextOccurrence.String())
	}

	if changed {
		if err := p.saveDescriptor(ctx, tpl.ID, d); err != nil {
			return fired, errors.Join(fireErr, err)
		}
	}
	return fired, fireErr
}

func (p *RecurringProcessor) saveDescriptor(ctx context.Context, templateID string, d core.RecurrenceDescriptor) error {
	return p.store.Update(ctx, func(tx ledger.Tx) error {
		cur, err := tx.LoadTransaction(ctx, templateID)
		if err != nil {
			return err
		}
		cur.Recurrence = &d
		if err := tx.SaveTransaction(ctx, cur); err != nil {
			return fmt.Errorf("update template %s: %w", templateID, err)
		}
		return nil
	})
}

func instanceID(templateID string, on core.Date) string {
	return uuid.NewSHA1(instanceNamespace, []byte(templateID+"/"+on.String())).String()
}
