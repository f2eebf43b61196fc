package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/log"
	ports "conti/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	defaultSheetBase = "Ledger"

	// Row counts are re-read after rowCacheTTL so rows added by hand are
	// not overwritten for long.
	rowCacheTTL  = 10 * time.Minute
	rowCacheSize = 16
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Ledger"); entries go to "<year> <base>".
	sheetBase string
	logger    *log.Logger

	mu       sync.Mutex
	nextRows *cache.LRUCache[int]
}

// Ensure interface conformance
var (
	_ ports.EntryWriter = (*Client)(nil)
	_ ports.EntryLister = (*Client)(nil)
)

// New wraps an initialized Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = defaultSheetBase
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
		logger:        log.Default(log.ComponentSheets),
		nextRows:      cache.NewLRUCache[int](rowCacheSize, rowCacheTTL),
	}
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID and service account credentials.
// Optional: GOOGLE_SHEET_NAME (default "Ledger").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	return Dial(ctx, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"))
}

// Dial authenticates with service account credentials from the
// environment and returns a client for spreadsheetID.
func Dial(ctx context.Context, spreadsheetID, sheetBase string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetBase), nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON, err := serviceAccountCredentials()
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func serviceAccountCredentials() ([]byte, error) {
	if inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); inline != "" {
		return []byte(inline), nil
	}

	path := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

// AppendEntry writes t as one row of the sheet for the year it occurred in.
// A header row is written first when the sheet is empty.
func (c *Client) AppendEntry(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("entry without transaction id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, t.OccurredAt.Year())

	c.mu.Lock()
	defer c.mu.Unlock()

	row, err := c.nextRow(ctx, sheet)
	if err != nil {
		return "", err
	}

	values := [][]any{entryRow(t)}
	start := row
	if row == 1 {
		values = [][]any{headerRow(), entryRow(t)}
		row = 2
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", sheet, start, lastColumn, row)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		c.nextRows.Delete(sheet)
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}
	c.nextRows.Set(sheet, row+1)

	ref := fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastColumn, row)
	c.logger.DebugContext(ctx, "Entry appended",
		log.FieldTransactionID, t.ID,
		log.FieldSheetsRef, ref)
	return ref, nil
}

// nextRow returns the first empty row of sheet, reading column A once and
// counting locally afterwards. Caller holds mu.
func (c *Client) nextRow(ctx context.Context, sheet string) (int, error) {
	if n, ok := c.nextRows.Get(sheet); ok {
		return n, nil
	}
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get sheet dimensions for %s: %w", sheet, err)
	}
	n := len(resp.Values) + 1
	c.nextRows.Set(sheet, n)
	return n, nil
}

// ListEntries reads back the entries exported for year and month.
func (c *Client) ListEntries(ctx context.Context, year int, month int) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month: %d", month)
	}

	rng := fmt.Sprintf("%s!A:%s", yearPrefixedName(c.sheetBase, year), lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	var out []core.Transaction
	for _, row := range resp.Values {
		t, ok := parseEntryRow(toStrings(row))
		if !ok || t.OccurredAt.Month() != month {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
