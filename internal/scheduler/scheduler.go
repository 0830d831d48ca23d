// Package scheduler runs periodic maintenance for SwiftShowings.
//
// Jobs are scheduled with 5-field cron expressions. The housekeeping job
// prunes dedup and outbox rows that are past the retention window.
package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/store"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultHousekeepingSchedule runs housekeeping daily at 03:00.
	DefaultHousekeepingSchedule = "0 3 * * *"
	// DefaultRetention is how long processed dedup and terminal outbox rows are kept.
	DefaultRetention = 7 * 24 * time.Hour
)

// Standard 5-field parser (min, hour, dom, month, dow) plus descriptors like @daily.
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is a schedule AddJob accepts.
func ValidateSchedule(expr string) error {
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Panics in jobs are recovered and logged.
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	if _, err := s.cron.AddFunc(expr, task); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Len returns the number of scheduled jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Housekeeper prunes rows that only matter for a short while: processed
// inbound dedup records and delivered or abandoned outbox messages.
type Housekeeper struct {
	dedup     store.DedupPruner
	outbox    store.OutboxPruner
	retention time.Duration
	now       func() time.Time
}

// NewHousekeeper returns a Housekeeper for st. Either pruning concern is
// skipped when st does not support it.
func NewHousekeeper(st store.Store, retention time.Duration) *Housekeeper {
	if retention <= 0 {
		retention = DefaultRetention
	}
	h := &Housekeeper{retention: retention, now: time.Now}
	if p, ok := st.(store.DedupPruner); ok {
		h.dedup = p
	}
	if p, ok := st.(store.OutboxPruner); ok {
		h.outbox = p
	}
	return h
}

// Run prunes once. Errors are logged; the next scheduled run tries again.
func (h *Housekeeper) Run() {
	cutoff := h.now().Add(-h.retention)
	if h.dedup != nil {
		n, err := h.dedup.PruneInbound(cutoff)
		if err != nil {
			slog.Error("Housekeeper.Run: failed to prune inbound dedup", "error", err)
		} else if n > 0 {
			slog.Info("Housekeeper.Run: pruned inbound dedup", "count", n, "before", cutoff)
		}
	}
	if h.outbox != nil {
		n, err := h.outbox.PruneOutbox(cutoff)
		if err != nil {
			slog.Error("Housekeeper.Run: failed to prune outbox", "error", err)
		} else if n > 0 {
			slog.Info("Housekeeper.Run: pruned outbox", "count", n, "before", cutoff)
		}
	}
}

// Schedule registers h.Run on s.
func (h *Housekeeper) Schedule(s *Scheduler, expr string) error {
	if expr == "" {
		expr = DefaultHousekeepingSchedule
	}
	if err := s.AddJob(expr, h.Run); err != nil {
		return err
	}
	slog.Info("Housekeeper.Schedule: housekeeping scheduled", "schedule", expr, "retention", h.retention)
	return nil
}
