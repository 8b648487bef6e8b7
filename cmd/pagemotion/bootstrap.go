package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"pagemotion/internal/compositor"
	"pagemotion/internal/config"
	"pagemotion/internal/jobs"
	"pagemotion/internal/ledger"
	"pagemotion/internal/pkg/logger"
	"pagemotion/internal/pkg/shutdown"
	"pagemotion/internal/results"
	"pagemotion/internal/storage"
	"pagemotion/internal/worker"
	"pagemotion/internal/worker/processor"
	"pagemotion/internal/worker/queue"
)

// services holds everything shared by the API and the worker.
type services struct {
	cfg       *config.Config
	log       *logger.Logger
	queue     queue.Queue
	pipelines results.Pipelines
	ledger    ledger.Store
	storage   storage.Provider
	rdb       *redis.Client
}

// bootstrap connects the configured backends and registers their cleanup
// with mgr.
func bootstrap(ctx context.Context, cfg *config.Config, log *logger.Logger, mgr *shutdown.Manager) (*services, error) {
	s := &services{cfg: cfg, log: log, pipelines: results.Pipelines{}}

	switch cfg.Queue.Backend {
	case config.QueueRedis:
		log.Info("connecting to Redis", "addr", cfg.Queue.RedisAddr)
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		mgr.Register("redis", func(ctx context.Context) error {
			return s.rdb.Close()
		})
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info("Redis connected")

		s.queue = queue.NewRedisQueue(s.rdb, cfg.Queue.Prefix+":jobs")
		for _, kind := range jobs.Kinds() {
			buf := results.NewRedisBuffer(s.rdb, cfg.Queue.Prefix, kind)
			s.pipelines[kind] = results.NewPipeline(kind, buf, cfg.ResponsesDir(), log)
		}
	default:
		s.queue = queue.NewMemoryQueue()
		for _, kind := range jobs.Kinds() {
			s.pipelines[kind] = results.NewPipeline(kind, results.NewMemoryBuffer(), cfg.ResponsesDir(), log)
		}
	}

	log.Info("opening job ledger", "driver", cfg.Ledger.Driver)
	store, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	s.ledger = store
	mgr.Register("ledger", func(ctx context.Context) error {
		return store.Close()
	})

	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage provider: %w", err)
	}
	s.storage = sp
	log.Info("storage provider initialized", "provider", sp.Provider())

	return s, nil
}

func (s *services) workerDeps() worker.Deps {
	return worker.Deps{
		Queue: s.queue,
		Processor: processor.New(processor.Deps{
			Storage:    s.storage,
			Engine:     compositor.New(s.log),
			WorkDir:    s.cfg.WorkDir(),
			ResultsDir: s.cfg.ResultsDir(),
			Log:        s.log,
		}),
		Pipelines: s.pipelines,
		Ledger:    s.ledger,
		LockPath:  s.cfg.LockPath(),
		Log:       s.log,
	}
}

// startWorker runs the worker loop until shutdown and registers a handler
// that waits for the job in flight.
func (s *services) startWorker(mgr *shutdown.Manager) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := worker.Run(ctx, s.workerDeps()); err != nil && ctx.Err() == nil {
			s.log.Error("worker stopped", "error", err.Error())
			go mgr.Shutdown()
		}
	}()

	mgr.Register("worker", func(shutdownCtx context.Context) error {
		cancel()
		select {
		case <-done:
			return nil
		case <-shutdownCtx.Done():
			return shutdownCtx.Err()
		}
	})
}
