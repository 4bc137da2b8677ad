// Package indexer snapshots exchange state into storage on a schedule.
package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gnodesk/internal/market"
	"gnodesk/internal/model"
	"gnodesk/internal/storage"
)

// Source is the read side a Runner snapshots.
type Source interface {
	Pools(ctx context.Context) ([]model.PoolRecord, error)
	Tokens(ctx context.Context) ([]model.TokenDescriptor, error)
	Tickets(ctx context.Context, filter market.TicketFilter) ([]model.Ticket, error)
}

// RunConfig holds runtime settings for the runner.
type RunConfig struct {
	// Rounds is the number of snapshots to take; zero runs until cancelled.
	Rounds   uint64
	Interval time.Duration
	// Skips, when set, is drained into each snapshot.
	Skips    *SkipBuffer
}

// SkipBuffer collects decode skips between snapshots.
type SkipBuffer struct {
	mu    sync.Mutex
	skips []model.DecodeSkip
}

// Add is safe to pass as a market.Options OnSkip hook.
func (b *SkipBuffer) Add(skip model.DecodeSkip) {
	b.mu.Lock()
	b.skips = append(b.skips, skip)
	b.mu.Unlock()
}

// Drain returns and clears the buffered skips.
func (b *SkipBuffer) Drain() []model.DecodeSkip {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.skips
	b.skips = nil
	return out
}

// Runner takes snapshots from a Source and writes them to storage.
type Runner struct {
	cfg        RunConfig
	source     Source
	storage    storage.Storage
	checkpoint storage.Checkpointer
	logger     *zap.Logger
	now        func() time.Time
}

// NewRunner builds a Runner with its dependencies. checkpoint may be nil.
func NewRunner(cfg RunConfig, source Source, storageSink storage.Storage, checkpoint storage.Checkpointer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		source:     source,
		storage:    storageSink,
		checkpoint: checkpoint,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the snapshot loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.source == nil {
		return fmt.Errorf("source is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.Rounds == 0 && r.cfg.Interval <= 0 {
		return fmt.Errorf("interval must be greater than zero when rounds is unbounded")
	}

	round := uint64(1)
	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.LoadCheckpoint(ctx)
		if err != nil {
			return err
		}
		if ok {
			round = cp.Round + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_round", cp.Round), zap.Time("taken_at", cp.TakenAt))
		}
	}

	for taken := uint64(0); r.cfg.Rounds == 0 || taken < r.cfg.Rounds; taken++ {
		if taken > 0 {
			if err := sleep(ctx, r.cfg.Interval); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		snap, err := r.Snapshot(ctx, round)
		if err != nil {
			return fmt.Errorf("snapshot round %d: %w", round, err)
		}
		if err := r.storage.PutSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("store snapshot: %w", err)
		}
		if r.checkpoint != nil {
			if err := r.checkpoint.SaveCheckpoint(ctx, storage.Checkpoint{Round: round, TakenAt: snap.TakenAt}); err != nil {
				return err
			}
		}

		r.logger.Info("round complete",
			zap.Uint64("round", round),
			zap.Int("pools", len(snap.Pools)),
			zap.Int("tokens", len(snap.Tokens)),
			zap.Int("tickets", len(snap.Tickets)),
			zap.Int("skipped", len(snap.Skips)),
		)
		round++
	}
	return nil
}

// Snapshot fetches pools, tokens and tickets concurrently.
func (r *Runner) Snapshot(ctx context.Context, round uint64) (storage.Snapshot, error) {
	snap := storage.Snapshot{Round: round, TakenAt: r.now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pools, err := r.source.Pools(gctx)
		if err != nil {
			return fmt.Errorf("pools: %w", err)
		}
		snap.Pools = pools
		return nil
	})
	g.Go(func() error {
		tokens, err := r.source.Tokens(gctx)
		if err != nil {
			return fmt.Errorf("tokens: %w", err)
		}
		snap.Tokens = tokens
		return nil
	})
	g.Go(func() error {
		tickets, err := r.source.Tickets(gctx, market.TicketFilter{At: snap.TakenAt})
		if err != nil {
			return fmt.Errorf("tickets: %w", err)
		}
		snap.Tickets = tickets
		return nil
	})
	if err := g.Wait(); err != nil {
		return storage.Snapshot{}, err
	}

	if r.cfg.Skips != nil {
		snap.Skips = r.cfg.Skips.Drain()
	}
	return snap, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
