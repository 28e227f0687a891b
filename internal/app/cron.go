package app

import (
	"context"
	"time"

	"github.com/social-agent/core/internal/pkg/cron"
	"github.com/social-agent/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

func (a *App) registerCronJobs() {
	a.scheduler.Register(cron.Job{
		Name:        "publish_due_posts",
		Description: "publish scheduled posts whose time has come",
		Interval:    a.cfg.Scheduler.SweepInterval(),
		Fn:          a.runPublishSweep,
	})

	a.scheduler.Register(cron.Job{
		Name:        "cleanup_job_records",
		Description: "drop completed job records older than 24h",
		Interval:    6 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().Add(-24 * time.Hour).UnixMilli()
			return a.jobs.DeleteCompleted(ctx, cutoff)
		},
	})
}

// runPublishSweep executes one due-post sweep and records it as a job so
// operators can audit sweep outcomes. The dedup key keeps overlapping
// triggers (timer plus manual run) from double-tracking the same sweep.
func (a *App) runPublishSweep(ctx context.Context) error {
	job, err := a.jobs.Enqueue(ctx, "publish_sweep", nil, "publish_sweep")
	if err != nil {
		a.log.Warn("sweep job tracking unavailable", zap.Error(err))
	}

	results, sweepErr := a.scanner.RunDueSweep(ctx)

	if job != nil {
		if sweepErr != nil {
			_ = a.jobs.UpdateStatus(ctx, job.ID, taskqueue.JobFailed, nil, sweepErr.Error())
		} else {
			_ = a.jobs.UpdateStatus(ctx, job.ID, taskqueue.JobCompleted, results, "")
		}
	}
	return sweepErr
}
