package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"pagemotion/internal/config"
	"pagemotion/internal/pkg/shutdown"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the job worker against the shared redis queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Queue.Backend != config.QueueRedis {
				return errors.New("the standalone worker needs queue.backend = \"redis\"; use serve for the in-memory queue")
			}
			return runWorker(cmd.Context(), cfg)
		},
	}
}

func runWorker(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger(cfg)
	log.Info("starting pagemotion worker", "version", version)

	mgr := shutdown.NewManager(log, 5*time.Minute)
	svc, err := bootstrap(ctx, cfg, log, mgr)
	if err != nil {
		mgr.Shutdown()
		return err
	}
	svc.startWorker(mgr)

	mgr.Wait(ctx)
	return nil
}
