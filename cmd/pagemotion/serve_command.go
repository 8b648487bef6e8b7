package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"pagemotion/internal/config"
	"pagemotion/internal/httpapi"
	"pagemotion/internal/pkg/shutdown"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var noWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the job worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if noWorker && cfg.Queue.Backend != config.QueueRedis {
				return errors.New("--no-worker needs queue.backend = \"redis\" so a separate worker can consume jobs")
			}
			return runServe(cmd.Context(), cfg, !noWorker)
		},
	}
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "Do not run the worker in this process (redis queue only)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, withWorker bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger(cfg)
	log.Info("starting pagemotion API", "version", version, "addr", cfg.Server.Addr)

	mgr := shutdown.NewManager(log, 30*time.Second)
	svc, err := bootstrap(ctx, cfg, log, mgr)
	if err != nil {
		mgr.Shutdown()
		return err
	}

	if withWorker {
		svc.startWorker(mgr)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Server:    cfg.Server,
		Queue:     svc.queue,
		Pipelines: svc.pipelines,
		Ledger:    svc.ledger,
		SP:        svc.storage,
		RDB:       svc.rdb,
		Log:       log,
		Version:   version,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	mgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", "error", err.Error())
			serveErr <- err
			mgr.Shutdown()
		}
	}()

	mgr.Wait(ctx)
	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}
