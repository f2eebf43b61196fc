package google

import (
	"fmt"
	"strings"

	"conti/internal/core"
)

// Column layout of the export sheet, A through I.
var columns = []string{"Date", "Account", "Counterparty", "Kind", "Category", "Description", "Amount", "Status", "ID"}

const lastColumn = "I"

func headerRow() []any {
	row := make([]any, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return row
}

func entryRow(t core.Transaction) []any {
	return []any{
		t.OccurredAt.String(),
		t.AccountID,
		t.CounterpartyID,
		string(t.Kind),
		t.Category,
		t.Description,
		t.Amount.String(),
		string(t.Status),
		t.ID,
	}
}

// parseEntryRow is the inverse of entryRow. The header row and rows that
// do not carry a date, an amount and an id are skipped.
func parseEntryRow(cols []string) (core.Transaction, bool) {
	if len(cols) < len(columns) {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(cols[0])
	if err != nil {
		return core.Transaction{}, false
	}
	amount, err := core.ParseMoney(cols[6])
	if err != nil || cols[8] == "" {
		return core.Transaction{}, false
	}
	return core.Transaction{
		ID:             cols[8],
		Kind:           core.TransactionKind(cols[3]),
		Amount:         amount,
		AccountID:      cols[1],
		CounterpartyID: cols[2],
		Category:       cols[4],
		Description:    cols[5],
		OccurredAt:     date,
		Status:         core.TransactionStatus(cols[7]),
	}, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
