package google

import (
	"testing"

	"conti/internal/core"
)

func TestEntryRowRoundTrip(t *testing.T) {
	in := core.Transaction{
		ID:             "7f9c",
		Kind:           core.Transfer,
		Amount:         core.Cents(-30050),
		AccountID:      "checking",
		CounterpartyID: "savings",
		Category:       "savings",
		Description:    "Monthly saving",
		OccurredAt:     core.NewDate(2024, 3, 31),
		Status:         core.StatusPosted,
	}

	row := entryRow(in)
	if len(row) != len(columns) {
		t.Fatalf("row has %d columns, want %d", len(row), len(columns))
	}
	if row[0] != "2024-03-31" || row[6] != "-300.50" {
		t.Errorf("unexpected row: %v", row)
	}

	out, ok := parseEntryRow(toStrings(row))
	if !ok {
		t.Fatal("parseEntryRow rejected a written row")
	}
	if out.ID != in.ID || out.Amount != in.Amount || !out.OccurredAt.Equal(in.OccurredAt) ||
		out.CounterpartyID != in.CounterpartyID || out.Kind != in.Kind || out.Status != in.Status {
		t.Errorf("round trip mismatch: got %+v", out)
	}
}

func TestParseEntryRow_Skips(t *testing.T) {
	tests := []struct {
		name string
		cols []any
	}{
		{"header", headerRow()},
		{"short row", []any{"2024-01-01", "acc"}},
		{"bad amount", []any{"2024-01-01", "acc", "", "expense", "", "", "n/a", "posted", "id"}},
		{"missing id", []any{"2024-01-01", "acc", "", "expense", "", "", "1.00", "posted", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := parseEntryRow(toStrings(tt.cols)); ok {
				t.Errorf("expected row %v to be skipped", tt.cols)
			}
		})
	}
}

func TestParseEntryRow_CommaDecimal(t *testing.T) {
	cols := []any{"2024-01-01", "acc", "", "expense", "food", "Bar", "-4,50", "posted", "id-1"}
	got, ok := parseEntryRow(toStrings(cols))
	if !ok || got.Amount.Cents != -450 {
		t.Fatalf("got %+v ok=%v, want -450 cents", got, ok)
	}
}
