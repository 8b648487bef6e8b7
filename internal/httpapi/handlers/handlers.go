// Package handlers implements the HTTP endpoints: submission, the two result
// polls, job status and health.
package handlers

import (
	"github.com/redis/go-redis/v9"

	"pagemotion/internal/ledger"
	"pagemotion/internal/pkg/logger"
	"pagemotion/internal/ports"
	"pagemotion/internal/results"
	"pagemotion/internal/worker/queue"
)

type Deps struct {
	Queue     queue.Queue
	Pipelines results.Pipelines
	Ledger    ledger.Store
	SP        ports.StorageProvider
	// RDB is only set for the redis queue backend; health checks ping it.
	RDB     *redis.Client
	Log     *logger.Logger
	Version string
}

type Handler struct {
	queue     queue.Queue
	pipelines results.Pipelines
	ledger    ledger.Store
	sp        ports.StorageProvider
	rdb       *redis.Client
	log       *logger.Logger
	version   string
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	if d.Ledger == nil {
		d.Ledger = ledger.NewMemory()
	}
	return &Handler{
		queue:     d.Queue,
		pipelines: d.Pipelines,
		ledger:    d.Ledger,
		sp:        d.SP,
		rdb:       d.RDB,
		log:       log.WithComponent("api"),
		version:   d.Version,
	}
}
