package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the hand-written SQL for accounts and transactions.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const timeLayout = time.RFC3339Nano

const accountColumns = `id, name, kind, balance_cents, currency, active,
	credit_limit_cents, interest_rate, minimum_payment_cents, cutoff_day, payment_due_day, available_credit_cents,
	created_at, updated_at`

const getAccount = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`

func (q *Queries) GetAccount(ctx context.Context, id string) (core.Account, error) {
	a, err := scanAccount(q.db.QueryRowContext(ctx, getAccount, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, id)
	}
	return a, err
}

const listAccounts = `SELECT ` + accountColumns + ` FROM accounts ORDER BY name, id`

func (q *Queries) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := q.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const upsertAccount = `INSERT INTO accounts (` + accountColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	kind = excluded.kind,
	balance_cents = excluded.balance_cents,
	currency = excluded.currency,
	active = excluded.active,
	credit_limit_cents = excluded.credit_limit_cents,
	interest_rate = excluded.interest_rate,
	minimum_payment_cents = excluded.minimum_payment_cents,
	cutoff_day = excluded.cutoff_day,
	payment_due_day = excluded.payment_due_day,
	available_credit_cents = excluded.available_credit_cents,
	updated_at = excluded.updated_at`

func (q *Queries) UpsertAccount(ctx context.Context, a core.Account) error {
	var (
		limit, minPay, cutoff, due, avail sql.NullInt64
		rate                              sql.NullFloat64
	)
	if c := a.Credit; c != nil {
		limit = sql.NullInt64{Int64: c.CreditLimit.Cents, Valid: true}
		rate = sql.NullFloat64{Float64: c.InterestRate, Valid: true}
		minPay = sql.NullInt64{Int64: c.MinimumPayment.Cents, Valid: true}
		cutoff = sql.NullInt64{Int64: int64(c.CutoffDay), Valid: true}
		due = sql.NullInt64{Int64: int64(c.PaymentDueDay), Valid: true}
		avail = sql.NullInt64{Int64: c.AvailableCredit.Cents, Valid: true}
	}

	_, err := q.db.ExecContext(ctx, upsertAccount,
		a.ID, a.Name, string(a.Kind), a.Balance.Cents, a.Currency, a.Active,
		limit, rate, minPay, cutoff, due, avail,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	return err
}

const transactionColumns = `id, kind, amount_cents, account_id, counterparty_id, category, description,
	occurred_at, status, applied_at, reversal_of, reversed_by, template_id, created_at,
	rec_frequency, rec_interval, rec_anchor_date, rec_end_date, rec_next_occurrence,
	rec_day_of_month, rec_day_of_week, rec_active,
	inst_number, inst_total, inst_interest_rate`

const getTransaction = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: %s", ledger.ErrTransactionNotFound, id)
	}
	return t, err
}

const upsertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status = excluded.status,
	applied_at = excluded.applied_at,
	reversed_by = excluded.reversed_by,
	category = excluded.category,
	description = excluded.description,
	rec_interval = excluded.rec_interval,
	rec_end_date = excluded.rec_end_date,
	rec_next_occurrence = excluded.rec_next_occurrence,
	rec_day_of_month = excluded.rec_day_of_month,
	rec_day_of_week = excluded.rec_day_of_week,
	rec_active = excluded.rec_active`

// UpsertTransaction inserts t or updates the fields that may change after
// creation. Amount and account linkage are immutable once stored.
func (q *Queries) UpsertTransaction(ctx context.Context, t core.Transaction) error {
	var (
		freq, anchor, end, next sql.NullString
		interval, dom, dow      sql.NullInt64
		active                  sql.NullBool
		instNum, instTotal      sql.NullInt64
		instRate                sql.NullFloat64
	)
	if r := t.Recurrence; r != nil {
		freq = nullString(string(r.Frequency))
		interval = sql.NullInt64{Int64: int64(r.Interval), Valid: true}
		anchor = nullDate(r.AnchorDate)
		end = nullDate(r.EndDate)
		next = nullDate(r.NextOccurrence)
		dom = sql.NullInt64{Int64: int64(r.DayOfMonth), Valid: true}
		if r.DayOfWeek != nil {
			dow = sql.NullInt64{Int64: int64(*r.DayOfWeek), Valid: true}
		}
		active = sql.NullBool{Bool: r.Active, Valid: true}
	}
	if i := t.Installment; i != nil {
		instNum = sql.NullInt64{Int64: int64(i.Number), Valid: true}
		instTotal = sql.NullInt64{Int64: int64(i.Total), Valid: true}
		instRate = sql.NullFloat64{Float64: i.InterestRate, Valid: true}
	}

	var applied sql.NullString
	if !t.AppliedAt.IsZero() {
		applied = nullString(formatTime(t.AppliedAt))
	}

	_, err := q.db.ExecContext(ctx, upsertTransaction,
		t.ID, string(t.Kind), t.Amount.Cents, t.AccountID, nullString(t.CounterpartyID), t.Category, t.Description,
		t.OccurredAt.String(), string(t.Status), applied, nullString(t.ReversalOf), nullString(t.ReversedBy),
		nullString(t.TemplateID), formatTime(t.CreatedAt),
		freq, interval, anchor, end, next, dom, dow, active,
		instNum, instTotal, instRate,
	)
	return err
}

// ListTransactions pushes f down into SQL. The result order matches the
// in-memory store: occurrence date, then insertion.
func (q *Queries) ListTransactions(ctx context.Context, f ledger.Filter) ([]core.Transaction, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.AccountID != "" {
		where = append(where, "(account_id = ? OR counterparty_id = ?)")
		args = append(args, f.AccountID, f.AccountID)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "occurred_at <= ?")
		args = append(args, f.To.String())
	}
	if f.AppliedOnly {
		where = append(where, "applied_at IS NOT NULL AND status <> ? AND reversal_of IS NULL")
		args = append(args, string(core.StatusCancelled))
	}
	if f.TemplatesOnly {
		where = append(where, "rec_frequency IS NOT NULL AND rec_active = 1")
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at, rowid"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const pendingExports = `SELECT id FROM transactions
WHERE applied_at IS NOT NULL AND exported_at IS NULL
ORDER BY created_at, rowid
LIMIT ?`

func (q *Queries) PendingExports(ctx context.Context, limit int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, pendingExports, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const markExported = `UPDATE transactions SET exported_at = ?, sheets_ref = ? WHERE id = ?`

func (q *Queries) MarkExported(ctx context.Context, id, ref string, at time.Time) error {
	res, err := q.db.ExecContext(ctx, markExported, formatTime(at), ref, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ledger.ErrTransactionNotFound, id)
	}
	return nil
}

const exportRef = `SELECT COALESCE(sheets_ref, '') FROM transactions WHERE id = ?`

// ExportRef returns the sheet reference of an exported transaction, or ""
// when it has not been exported yet.
func (q *Queries) ExportRef(ctx context.Context, id string) (string, error) {
	var ref string
	err := q.db.QueryRowContext(ctx, exportRef, id).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ledger.ErrTransactionNotFound, id)
	}
	return ref, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(s scanner) (core.Account, error) {
	var (
		a                                 core.Account
		kind, created, updated            string
		balance                           int64
		limit, minPay, cutoff, due, avail sql.NullInt64
		rate                              sql.NullFloat64
	)
	err := s.Scan(&a.ID, &a.Name, &kind, &balance, &a.Currency, &a.Active,
		&limit, &rate, &minPay, &cutoff, &due, &avail,
		&created, &updated)
	if err != nil {
		return core.Account{}, err
	}

	a.Kind = core.AccountKind(kind)
	a.Balance = core.Cents(balance)
	a.CreatedAt = parseTime(created)
	a.UpdatedAt = parseTime(updated)
	if limit.Valid {
		a.Credit = &core.CreditTerms{
			CreditLimit:     core.Cents(limit.Int64),
			InterestRate:    rate.Float64,
			MinimumPayment:  core.Cents(minPay.Int64),
			CutoffDay:       int(cutoff.Int64),
			PaymentDueDay:   int(due.Int64),
			AvailableCredit: core.Cents(avail.Int64),
		}
	}
	return a, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                                      core.Transaction
		kind, status, occurred, created        string
		amount                                 int64
		counterparty, applied, reversalOf      sql.NullString
		reversedBy, templateID                 sql.NullString
		freq, anchor, end, next                sql.NullString
		interval, dom, dow, instNum, instTotal sql.NullInt64
		active                                 sql.NullBool
		instRate                               sql.NullFloat64
	)
	err := s.Scan(&t.ID, &kind, &amount, &t.AccountID, &counterparty, &t.Category, &t.Description,
		&occurred, &status, &applied, &reversalOf, &reversedBy, &templateID, &created,
		&freq, &interval, &anchor, &end, &next, &dom, &dow, &active,
		&instNum, &instTotal, &instRate)
	if err != nil {
		return core.Transaction{}, err
	}

	t.Kind = core.TransactionKind(kind)
	t.Status = core.TransactionStatus(status)
	t.Amount = core.Cents(amount)
	t.CounterpartyID = counterparty.String
	t.ReversalOf = reversalOf.String
	t.ReversedBy = reversedBy.String
	t.TemplateID = templateID.String
	t.OccurredAt = parseDate(occurred)
	t.CreatedAt = parseTime(created)
	if applied.Valid {
		t.AppliedAt = parseTime(applied.String)
	}

	if freq.Valid {
		r := &core.RecurrenceDescriptor{
			Frequency:      core.Frequency(freq.String),
			Interval:       int(interval.Int64),
			AnchorDate:     parseDate(anchor.String),
			EndDate:        parseDate(end.String),
			NextOccurrence: parseDate(next.String),
			DayOfMonth:     int(dom.Int64),
			Active:         active.Bool,
		}
		if dow.Valid {
			wd := time.Weekday(dow.Int64)
			r.DayOfWeek = &wd
		}
		t.Recurrence = r
	}
	if instNum.Valid {
		t.Installment = &core.InstallmentInfo{
			Number:       int(instNum.Int64),
			Total:        int(instTotal.Int64),
			InterestRate: instRate.Float64,
		}
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDate(d core.Date) sql.NullString {
	return nullString(d.String())
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseDate(s string) core.Date {
	if s == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}
	}
	return d
}
