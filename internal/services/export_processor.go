package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"conti/internal/log"
)

// Backfiller exports ledger entries whose events were lost.
type Backfiller interface {
	ProcessPending(ctx context.Context) (int, error)
}

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often to look for unexported entries (default: 5m)
	PollInterval time.Duration
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval: 5 * time.Minute,
	}
}

// ExportProcessor periodically runs a Backfiller so entries reach the
// spreadsheet even when the event bus dropped their events.
type ExportProcessor struct {
	backfill Backfiller
	config   ExportProcessorConfig
	logger   *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewExportProcessor creates a new export processor
func NewExportProcessor(backfill Backfiller, config ExportProcessorConfig) *ExportProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultExportProcessorConfig().PollInterval
	}
	return &ExportProcessor{
		backfill: backfill,
		config:   config,
		logger:   log.Default(log.ComponentWorker),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("export processor is already running")
	}
	if p.backfill == nil {
		return fmt.Errorf("export processor has no backfiller")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.runLoop(ctx, p.stopCh, p.doneCh)

	p.logger.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval.String())
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ExportProcessor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on startup
	p.runOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *ExportProcessor) runOnce(ctx context.Context) {
	n, err := p.backfill.ProcessPending(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "Export backfill failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		return
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "Exported pending entries", "count", n)
	}
}
