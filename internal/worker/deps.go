package worker

import (
	"pagemotion/internal/ledger"
	"pagemotion/internal/pkg/logger"
	"pagemotion/internal/results"
	"pagemotion/internal/worker/processor"
	"pagemotion/internal/worker/queue"
)

type Deps struct {
	Queue     queue.Queue
	Processor *processor.Processor
	Pipelines results.Pipelines
	// Ledger is optional; when nil job status is not recorded.
	Ledger ledger.Store
	// LockPath guards against a second consumer on the same temp directory.
	LockPath string
	Log      *logger.Logger
}
