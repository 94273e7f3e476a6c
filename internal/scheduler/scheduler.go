// Package scheduler runs the periodic maintenance sweeps: expired sessions,
// expired recovery snapshots, and completed-encounter note generation are all
// driven from here on cron expressions.
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/BTreeMap/IntakePipe/internal/store"
)

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Standard 5-field cron parser (min, hour, dom, month, dow) with panic recovery.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Sweep expressions. Sessions expire after 30 minutes and snapshots after an
// hour, so sweeping every 5 minutes keeps the backlog small without load.
const (
	SessionSweepSpec  = "*/5 * * * *"
	SnapshotSweepSpec = "*/10 * * * *"
)

// ScheduleMaintenance registers the storage sweeps on the scheduler.
func ScheduleMaintenance(s *Scheduler, st store.Store) error {
	if err := s.AddJob(SessionSweepSpec, func() { sweepSessions(st) }); err != nil {
		return err
	}
	return s.AddJob(SnapshotSweepSpec, func() { sweepSnapshots(st) })
}

func sweepSessions(st store.Store) {
	n, err := st.DeleteExpiredSessions()
	if err != nil {
		slog.Error("Scheduler.sweepSessions: sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Scheduler.sweepSessions: expired sessions removed", "count", n)
	}
}

func sweepSnapshots(st store.Store) {
	n, err := st.DeleteExpiredSnapshots()
	if err != nil {
		slog.Error("Scheduler.sweepSnapshots: sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("Scheduler.sweepSnapshots: expired snapshots removed", "count", n)
	}
}
