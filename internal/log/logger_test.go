package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})

	logger.InfoContext(context.Background(), "Transaction applied", FieldTransactionID, "tx-1")

	out := buf.String()
	if !strings.Contains(out, "component=ledger") {
		t.Errorf("expected component field, got %q", out)
	}
	if !strings.Contains(out, "transaction_id=tx-1") {
		t.Errorf("expected transaction_id field, got %q", out)
	}
}

func TestWithComponentDoesNotDuplicate(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentApp, Output: &buf}).WithComponent(ComponentWorker)

	logger.Warn("x")

	out := buf.String()
	if strings.Count(out, "component=") != 1 || !strings.Contains(out, "component=worker") {
		t.Errorf("expected exactly one component=worker, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	logger := Discard().WithComponent(ComponentCLI)
	ctx := WithContext(context.Background(), logger)

	if got := FromContext(ctx); got.Component() != ComponentCLI {
		t.Errorf("component = %q, want %q", got.Component(), ComponentCLI)
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("fallback component = %q, want unknown", got.Component())
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithOperation(OpApply).
		WithTransaction("tx-1", "transfer", "a", "b", -500)

	if fields[FieldCounterpartyID] != "b" || fields[FieldAmountCents] != int64(-500) {
		t.Errorf("unexpected fields: %v", fields)
	}
	if len(fields.ToSlice()) != 2*len(fields) {
		t.Errorf("ToSlice length mismatch")
	}
}
