package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists accounts and transactions and implements
// ledger.Store on top of SQLite transactions.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Units of work read then write; with more than one connection SQLite
	// answers the upgrade with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  log.Default(log.ComponentStorage),
	}

	return repo, nil
}

func dsn(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Update implements ledger.Store. fn runs inside BEGIN/COMMIT and any error
// rolls the whole unit of work back.
func (r *SQLiteRepository) Update(ctx context.Context, fn func(ledger.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&sqlTx{q: r.queries.WithTx(tx)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.ErrorContext(ctx, "Rollback failed", log.FieldError, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// View implements ledger.Store. The transaction is always rolled back and
// saves inside fn fail.
func (r *SQLiteRepository) View(ctx context.Context, fn func(ledger.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqlTx{q: r.queries.WithTx(tx), readOnly: true})
}

// CreateAccount stores a new account outside of any ledger operation.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := r.queries.UpsertAccount(ctx, a); err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	r.logger.InfoContext(ctx, "Account created",
		log.FieldAccountID, a.ID,
		"kind", string(a.Kind),
		log.FieldBalanceCents, a.Balance.Cents)
	return nil
}

// ListAccounts returns every account, active or not.
func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	accounts, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// GetTransaction reads one transaction outside of a unit of work.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return r.queries.GetTransaction(ctx, id)
}

// PendingExports returns ids of applied transactions not yet exported to
// the spreadsheet, oldest first.
func (r *SQLiteRepository) PendingExports(ctx context.Context, limit int) ([]string, error) {
	ids, err := r.queries.PendingExports(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	return ids, nil
}

// MarkExported records the spreadsheet row a transaction was written to.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id, ref string) error {
	if err := r.queries.MarkExported(ctx, id, ref, time.Now()); err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}

	r.logger.DebugContext(ctx, "Transaction marked as exported",
		log.FieldTransactionID, id,
		log.FieldSheetsRef, ref)
	return nil
}

// ExportRef returns the sheet row a transaction was exported to, or "" if
// it has not been exported.
func (r *SQLiteRepository) ExportRef(ctx context.Context, id string) (string, error) {
	return r.queries.ExportRef(ctx, id)
}

// ListRecurring returns the active recurring templates.
func (r *SQLiteRepository) ListRecurring(ctx context.Context) ([]core.Transaction, error) {
	items, err := r.queries.ListTransactions(ctx, ledger.Filter{TemplatesOnly: true})
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}
	return items, nil
}

var errReadOnly = errors.New("storage: write inside View")

type sqlTx struct {
	q        *Queries
	readOnly bool
}

func (t *sqlTx) LoadAccount(ctx context.Context, id string) (core.Account, error) {
	return t.q.GetAccount(ctx, id)
}

func (t *sqlTx) SaveAccount(ctx context.Context, a core.Account) error {
	if t.readOnly {
		return errReadOnly
	}
	if err := t.q.UpsertAccount(ctx, a); err != nil {
		return fmt.Errorf("upsert account %s: %w", a.ID, err)
	}
	return nil
}

func (t *sqlTx) LoadTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return t.q.GetTransaction(ctx, id)
}

func (t *sqlTx) SaveTransaction(ctx context.Context, tr core.Transaction) error {
	if t.readOnly {
		return errReadOnly
	}
	if err := t.q.UpsertTransaction(ctx, tr); err != nil {
		return fmt.Errorf("upsert transaction %s: %w", tr.ID, err)
	}
	return nil
}

func (t *sqlTx) ListTransactions(ctx context.Context, f ledger.Filter) ([]core.Transaction, error) {
	items, err := t.q.ListTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, nil
}
