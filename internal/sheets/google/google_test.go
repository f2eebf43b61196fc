package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"conti/internal/core"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Errorf("error should name the variable, got: %v", err)
	}
}

func TestDial_RequiresSpreadsheetID(t *testing.T) {
	if _, err := Dial(context.Background(), "  ", "Ledger"); err == nil {
		t.Fatal("expected error for blank spreadsheet id")
	}
}

func TestDial_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := Dial(context.Background(), "sheet-123", "Ledger")
	if err == nil || !strings.Contains(err.Error(), "service account") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestServiceAccountCredentials(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(file, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatalf("write credentials: %v", err)
	}

	tests := []struct {
		name    string
		env     map[string]string
		want    string
		wantErr bool
	}{
		{
			name:    "nothing configured",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "inline json wins",
			env: map[string]string{
				"GOOGLE_SERVICE_ACCOUNT_JSON": `{"inline":true}`,
				"GOOGLE_SERVICE_ACCOUNT_FILE": file,
			},
			want: `{"inline":true}`,
		},
		{
			name: "service account file",
			env:  map[string]string{"GOOGLE_SERVICE_ACCOUNT_FILE": file},
			want: `{"type":"service_account"}`,
		},
		{
			name: "application default path",
			env:  map[string]string{"GOOGLE_APPLICATION_CREDENTIALS": file},
			want: `{"type":"service_account"}`,
		},
		{
			name:    "unreadable file",
			env:     map[string]string{"GOOGLE_SERVICE_ACCOUNT_FILE": filepath.Join(dir, "missing.json")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
				t.Setenv(k, tt.env[k])
			}
			got, err := serviceAccountCredentials()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("credentials = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClient_Uninitialized(t *testing.T) {
	c := New(nil, "sheet-id", "")
	if c.sheetBase != defaultSheetBase {
		t.Errorf("sheetBase = %q, want %q", c.sheetBase, defaultSheetBase)
	}

	ctx := context.Background()
	if _, err := c.AppendEntry(ctx, core.Transaction{ID: "tx"}); err == nil {
		t.Error("AppendEntry should fail without a service")
	}
	if _, err := c.AppendEntry(ctx, core.Transaction{}); err == nil {
		t.Error("AppendEntry should reject entries without id")
	}
	if _, err := c.ListEntries(ctx, 2024, 1); err == nil {
		t.Error("ListEntries should fail without a service")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Ledger", 2025, "2025 Ledger"},
		{"", 2023, ""},
		{"Test Sheet", 2022, "2022 Test Sheet"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}
