// Package worker runs the single consumer of the job queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"

	"pagemotion/internal/jobs"
	"pagemotion/internal/ledger"
	"pagemotion/internal/pkg/logger"
	"pagemotion/internal/worker/queue"
)

// ErrLocked is returned when another worker holds the lock file.
var ErrLocked = errors.New("another worker is already consuming this queue")

// Run pops jobs one at a time until ctx is canceled. Each job yields exactly
// one result, published to the pipeline of its kind. Job failures never stop
// the loop.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	if d.LockPath != "" {
		lock := flock.New(d.LockPath)
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire worker lock: %w", err)
		}
		if !ok {
			return ErrLocked
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				log.Warn("failed to release worker lock", "error", err.Error())
			}
		}()
	}

	log.Info("worker started", "lock", d.LockPath)
	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		job, err := d.Queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}

			log.Warn("queue pop error, retrying", "error", err.Error())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		handle(ctx, d, log, job)
	}
}

func handle(ctx context.Context, d Deps, log *logger.Logger, job jobs.Job) {
	// Jobs are never canceled once started; shutdown waits for them instead.
	jobCtx := logger.ContextWithJob(context.WithoutCancel(ctx), job.ID, string(job.Kind()))
	jobLog := log.WithJob(job.ID, string(job.Kind()))

	jobLog.Info("processing job", "queued_ms", time.Since(job.EnqueuedAt).Milliseconds())
	startTime := time.Now()
	record(jobCtx, d.Ledger, jobLog, ledger.Entry{JobID: job.ID, Kind: job.Kind(), Status: jobs.StatusRunning})

	res := d.Processor.Process(jobCtx, job)

	if res.Failed() {
		jobLog.Error("job failed",
			"code", res.Code,
			"error", res.Message,
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
	} else {
		jobLog.Info("job completed",
			"duration_ms", time.Since(startTime).Milliseconds(),
		)
	}

	pubCtx, cancel := context.WithTimeout(jobCtx, 10*time.Second)
	defer cancel()

	if err := d.Pipelines.Publish(pubCtx, res); err != nil {
		log.LogError(pubCtx, "publish result failed", err, "status", string(res.Status))
	}
	record(pubCtx, d.Ledger, jobLog, ledger.Entry{
		JobID:   res.JobID,
		Kind:    res.Kind,
		Status:  res.Status,
		Code:    res.Code,
		Message: res.Message,
	})
}

func record(ctx context.Context, store ledger.Store, log *logger.Logger, e ledger.Entry) {
	if store == nil {
		return
	}
	if err := store.Record(ctx, e); err != nil {
		log.WithError(err).Warn("ledger update failed", "status", string(e.Status))
	}
}
