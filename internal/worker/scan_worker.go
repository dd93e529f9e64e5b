package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/service"
)

// scheduleParser accepts 5-field cron expressions and descriptors such as
// "@every 5m" or "@hourly".
var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Scanner runs one SLA scan.
type Scanner interface {
	Scan(ctx context.Context, ownerID string) (service.ScanResult, error)
}

// ScanWorker invokes the SLA scan on a cron schedule. Overlapping runs are
// skipped.
type ScanWorker struct {
	scanner  Scanner
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
	cron     *cron.Cron
}

// ValidateSchedule reports whether schedule parses. Empty is valid and
// disables the worker.
func ValidateSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return nil
	}
	if _, err := scheduleParser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid scan schedule %q: %w", schedule, err)
	}
	return nil
}

// NewScanWorker builds a worker. Each run is bounded by timeout when positive.
func NewScanWorker(scanner Scanner, schedule string, timeout time.Duration, logger *zap.Logger) (*ScanWorker, error) {
	if err := ValidateSchedule(schedule); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanWorker{
		scanner:  scanner,
		schedule: strings.TrimSpace(schedule),
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Enabled reports whether a schedule is configured.
func (w *ScanWorker) Enabled() bool {
	return w != nil && w.schedule != ""
}

// Start schedules the scan. Runs use ctx as their parent.
func (w *ScanWorker) Start(ctx context.Context) error {
	if !w.Enabled() {
		return nil
	}
	w.cron = cron.New(
		cron.WithParser(scheduleParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := w.cron.AddFunc(w.schedule, func() { w.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule scan: %w", err)
	}
	w.cron.Start()
	w.logger.Info("sla scan scheduled", zap.String("schedule", w.schedule))
	return nil
}

// Stop halts scheduling and waits for a running scan, up to ctx.
func (w *ScanWorker) Stop(ctx context.Context) {
	if w == nil || w.cron == nil {
		return
	}
	select {
	case <-w.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce scans every owner once and logs the outcome.
func (w *ScanWorker) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	start := time.Now()
	result, err := w.scanner.Scan(ctx, "")
	if err != nil {
		w.logger.Warn("sla scan failed", zap.Error(err), zap.Int("emails_checked", result.EmailsChecked))
		return
	}
	w.logger.Info("sla scan completed",
		zap.Int("emails_checked", result.EmailsChecked),
		zap.Int("alerts_created", result.AlertsCreated),
		zap.Duration("duration", time.Since(start)))
}
