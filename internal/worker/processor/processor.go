// Package processor runs one job to completion and turns its outcome into a
// result for the matching pipeline.
package processor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"pagemotion/internal/compositor"
	"pagemotion/internal/jobs"
	"pagemotion/internal/pkg/errors"
	"pagemotion/internal/pkg/logger"
	"pagemotion/internal/ports"
)

// maxMessageLen bounds the failure message stored in error.json and the ledger.
const maxMessageLen = 2000

type Deps struct {
	Storage    ports.StorageProvider
	Engine     *compositor.Engine
	WorkDir    string
	ResultsDir string
	Log        *logger.Logger
}

type Processor struct {
	engine *compositor.Engine
	log    *logger.Logger

	inputHandler  *InputHandler
	outputHandler *OutputHandler
	cleanup       *Cleanup
}

func New(d Deps) *Processor {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("processor")

	engine := d.Engine
	if engine == nil {
		engine = compositor.New(log)
	}

	return &Processor{
		engine:        engine,
		log:           log,
		inputHandler:  NewInputHandler(d.Storage, log),
		outputHandler: NewOutputHandler(d.ResultsDir),
		cleanup:       NewCleanup(d.WorkDir, log),
	}
}

// Process runs job and always returns its result. Errors and panics become
// failed results whose directory holds error.json.
func (p *Processor) Process(ctx context.Context, job jobs.Job) (res jobs.Result) {
	ctx = logger.ContextWithJob(ctx, job.ID, string(job.Kind()))
	log := p.log.FromContext(ctx)

	res = jobs.Result{JobID: job.ID, Kind: job.Kind(), Status: jobs.StatusRunning}
	workName := fmt.Sprintf("%s-%s", job.ID, job.Kind())
	defer p.cleanup.CleanupJob(workName)

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			res = p.failJob(ctx, job, res.ContentPath, errors.Internal(fmt.Sprintf("job panicked: %v", r)))
		}
	}()

	dir, err := p.outputHandler.Prepare(job)
	if err != nil {
		return p.failJob(ctx, job, "", err)
	}
	res.ContentPath = dir

	workDir := p.cleanup.Dir(workName)
	switch payload := job.Payload.(type) {
	case jobs.AnimatePayload:
		err = p.animate(ctx, payload, workDir, dir)
	case jobs.MetadataPayload:
		err = p.extractMetadata(ctx, payload, workDir, dir)
	default:
		err = errors.Newf(errors.CodeValidation, "unsupported job kind %q", job.Kind())
	}
	if err != nil {
		return p.failJob(ctx, job, dir, err)
	}

	res.Status = jobs.StatusDone
	res.FinishedAt = time.Now().UTC()
	return res
}

func (p *Processor) failJob(ctx context.Context, job jobs.Job, dir string, cause error) jobs.Result {
	log := p.log.FromContext(ctx)

	msg := cause.Error()
	var appErr *errors.Error
	if errors.As(cause, &appErr) {
		log.Error("job failed",
			"code", string(appErr.Code),
			"op", appErr.Op,
			"message", appErr.Message,
			"error", msg,
		)
	} else {
		log.Error("job failed", "error", msg)
	}
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}

	res := jobs.Result{
		JobID:       job.ID,
		Kind:        job.Kind(),
		ContentPath: dir,
		Status:      jobs.StatusFailed,
		Code:        string(errors.GetCode(cause)),
		Message:     msg,
		FinishedAt:  time.Now().UTC(),
	}
	if dir == "" {
		return res
	}

	failure := jobs.Failure{JobID: res.JobID, Kind: res.Kind, Code: res.Code, Message: res.Message}
	if err := p.outputHandler.WriteFailure(dir, failure); err != nil {
		log.Error("write failure artifact", "error", err.Error())
	}
	return res
}
