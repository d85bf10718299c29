// Package jobs runs the service's scheduled background work.
package jobs

import (
    "context"
    "fmt"
    "log/slog"
    "time"

    "github.com/robfig/cron/v3"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/logger"
)

// sweepTimeout bounds a single sweep run.
const sweepTimeout = time.Minute

// Sweeper is the part of booking.Manager the job drives.
type Sweeper interface {
    SweepElapsed(ctx context.Context) (booking.SweepResult, error)
}

// SweepJob closes out reservations whose window has ended.
type SweepJob struct {
    sweeper Sweeper
    log     *logger.Logger
}

func NewSweepJob(s Sweeper, log *logger.Logger) *SweepJob {
    return &SweepJob{sweeper: s, log: log}
}

// Run implements cron.Job.
func (j *SweepJob) Run() {
    ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
    defer cancel()
    res, err := j.sweeper.SweepElapsed(ctx)
    if err != nil {
        j.log.Error(ctx, "sweep", "sweep finished with errors", err,
            slog.Int("completed", res.Completed), slog.Int("expired", res.Expired), slog.Int("skipped", res.Skipped))
        return
    }
    if res.Completed+res.Expired+res.Skipped == 0 {
        return
    }
    j.log.Info(ctx, "sweep", "elapsed reservations closed",
        slog.Int("completed", res.Completed), slog.Int("expired", res.Expired), slog.Int("skipped", res.Skipped))
}

// NewScheduler returns a cron scheduler (not started) that runs job on
// schedule, a standard five-field expression or a descriptor such as
// "@every 5m".  Overlapping runs are skipped.
func NewScheduler(schedule string, job cron.Job) (*cron.Cron, error) {
    c := cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
    if _, err := c.AddJob(schedule, job); err != nil {
        return nil, fmt.Errorf("schedule %q: %w", schedule, err)
    }
    return c, nil
}
