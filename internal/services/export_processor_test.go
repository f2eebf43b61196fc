package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingBackfiller struct {
	calls atomic.Int32
	err   error
}

func (b *countingBackfiller) ProcessPending(context.Context) (int, error) {
	b.calls.Add(1)
	return 1, b.err
}

func TestDefaultExportProcessorConfig(t *testing.T) {
	config := DefaultExportProcessorConfig()
	if config.PollInterval != 5*time.Minute {
		t.Errorf("expected PollInterval 5m, got %v", config.PollInterval)
	}

	p := NewExportProcessor(nil, ExportProcessorConfig{})
	if p.config.PollInterval != 5*time.Minute {
		t.Errorf("zero PollInterval should fall back to default, got %v", p.config.PollInterval)
	}
}

func TestExportProcessor_Lifecycle(t *testing.T) {
	b := &countingBackfiller{}
	p := NewExportProcessor(b, ExportProcessorConfig{PollInterval: 10 * time.Millisecond})

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.calls.Load() < 2 {
		t.Fatalf("backfill ran %d times, want at least 2", b.calls.Load())
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}

func TestExportProcessor_KeepsRunningOnErrors(t *testing.T) {
	b := &countingBackfiller{err: errors.New("sheets unavailable")}
	p := NewExportProcessor(b, ExportProcessorConfig{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.calls.Load() < 3 {
		t.Errorf("backfill ran %d times, want at least 3", b.calls.Load())
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestExportProcessor_StartWithoutBackfiller(t *testing.T) {
	p := NewExportProcessor(nil, DefaultExportProcessorConfig())
	if err := p.Start(context.Background()); err == nil {
		t.Error("expected error starting without a backfiller")
	}
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}
