package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gnodesk/internal/config"
	"gnodesk/internal/indexer"
	"gnodesk/internal/market"
	"gnodesk/internal/storage"
	"gnodesk/internal/storage/postgres"
	"gnodesk/internal/telemetry"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Snapshot pools, tokens and tickets into storage",
		RunE:  runSync,
	}
	cmd.Flags().Uint64("rounds", 0, "snapshots to take, 0 runs until interrupted")
	cmd.Flags().Duration("interval", 30*time.Second, "delay between snapshots")
	cmd.Flags().String("out", "./data/snapshots.jsonl", "output JSONL path")
	cmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	cmd.Flags().String("pg-dsn", "", "write snapshots to Postgres instead of JSONL")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSync(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	e, err := newEnv(cfg.Config)
	if err != nil {
		return err
	}
	defer e.close()
	logger := e.logger

	client, err := e.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	skips := &indexer.SkipBuffer{}
	svc, err := e.market(client, market.Options{OnSkip: skips.Add})
	if err != nil {
		return err
	}

	var (
		sink       storage.Storage
		checkpoint storage.Checkpointer
	)
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(e.ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(e.ctx); err != nil {
			return err
		}
		sink = store
		if cfg.CheckpointEnabled {
			checkpoint = store
		}
	} else {
		if cfg.Out == "" {
			return fmt.Errorf("output path is required")
		}
		sink = storage.NewJsonlStorage(cfg.Out)
		checkpoint = storage.NewCheckpointStore(cfg.Checkpoint, cfg.CheckpointEnabled)
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		Rounds:   cfg.Rounds,
		Interval: cfg.Interval,
		Skips:    skips,
	}, svc, sink, checkpoint, logger)

	logger.Info("sync start",
		zap.String("node", cfg.NodeURL),
		zap.String("exchange", cfg.ExchangePath),
		zap.Uint64("rounds", cfg.Rounds),
		zap.Duration("interval", cfg.Interval),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
	)

	if cfg.MetricsAddr == "" {
		return runner.Run(e.ctx)
	}

	g, ctx := errgroup.WithContext(e.ctx)
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
	g.Go(func() error {
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		return runner.Run(ctx)
	})
	return g.Wait()
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())
	return mux
}
