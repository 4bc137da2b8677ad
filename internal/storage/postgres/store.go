package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"gnodesk/internal/model"
	"gnodesk/internal/storage"
)

//go:embed schema.sql
var schema string

// syncStateName keys the snapshot checkpoint row in sync_state.
const syncStateName = "snapshot"

// Store provides Postgres persistence for snapshots and submissions.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutSnapshot upserts every pool, token and ticket of snap and appends its
// skips, in one batch.
func (s *Store) PutSnapshot(ctx context.Context, snap storage.Snapshot) error {
	batch := &pgx.Batch{}
	takenAt := snap.TakenAt.UTC()
	round := int64(snap.Round)

	for _, p := range snap.Pools {
		batch.Queue(`
			INSERT INTO pools (
				pool_key, token_a, token_b, reserve_a, reserve_b, total_supply_lp, last_round, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (pool_key)
			DO UPDATE SET
				token_a = EXCLUDED.token_a,
				token_b = EXCLUDED.token_b,
				reserve_a = EXCLUDED.reserve_a,
				reserve_b = EXCLUDED.reserve_b,
				total_supply_lp = EXCLUDED.total_supply_lp,
				last_round = EXCLUDED.last_round,
				updated_at = EXCLUDED.updated_at
		`,
			p.Key,
			p.TokenA.Path,
			p.TokenB.Path,
			amount(p.ReserveA),
			amount(p.ReserveB),
			amount(p.TotalSupplyLP),
			round,
			takenAt,
		)
	}

	for _, t := range snap.Tokens {
		batch.Queue(`
			INSERT INTO tokens (path, name, symbol, decimals, last_round, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (path)
			DO UPDATE SET
				name = EXCLUDED.name,
				symbol = EXCLUDED.symbol,
				decimals = EXCLUDED.decimals,
				last_round = EXCLUDED.last_round,
				updated_at = EXCLUDED.updated_at
		`,
			t.Path,
			t.Name,
			t.Symbol,
			int32(t.Decimals),
			round,
			takenAt,
		)
	}

	for _, t := range snap.Tickets {
		batch.Queue(`
			INSERT INTO tickets (
				ticket_id, creator, asset_in, asset_out, amount_in, min_amount_out,
				created_at, expires_at, status, last_round, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (ticket_id)
			DO UPDATE SET
				status = EXCLUDED.status,
				expires_at = EXCLUDED.expires_at,
				last_round = EXCLUDED.last_round,
				updated_at = EXCLUDED.updated_at
		`,
			t.ID,
			t.Creator,
			t.AssetIn.Key(),
			t.AssetOut.Key(),
			amount(t.AmountIn),
			amount(t.MinAmountOut),
			nullTime(t.CreatedAt),
			nullTime(t.ExpiresAt),
			string(t.EffectiveStatus(takenAt)),
			round,
			takenAt,
		)
	}

	for _, skip := range snap.Skips {
		batch.Queue(`
			INSERT INTO decode_skips (round, kind, item_index, item_key, raw, error, taken_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			round,
			skip.Kind,
			skip.Index,
			skip.Key,
			skip.Raw,
			skip.Error,
			takenAt,
		)
	}

	if batch.Len() == 0 {
		return nil
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("snapshot round %d statement %d: %w", snap.Round, i, err)
		}
	}
	return nil
}

// RecordSubmission upserts a journal entry by id.
func (s *Store) RecordSubmission(ctx context.Context, sub model.Submission) error {
	if sub.ID == "" {
		return fmt.Errorf("submission id required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (id, operation, shape, caller, send, state, code, log, tx_hash, error, submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			code = EXCLUDED.code,
			log = EXCLUDED.log,
			tx_hash = EXCLUDED.tx_hash,
			error = EXCLUDED.error
	`,
		sub.ID,
		sub.Operation,
		sub.Shape,
		sub.Caller,
		sub.Send,
		sub.State,
		int64(sub.Code),
		sub.Log,
		sub.TxHash,
		sub.Error,
		sub.SubmittedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record submission %s: %w", sub.ID, err)
	}
	return nil
}

// LoadCheckpoint returns the last completed snapshot round.
func (s *Store) LoadCheckpoint(ctx context.Context) (storage.Checkpoint, bool, error) {
	var (
		round   int64
		takenAt time.Time
	)
	row := s.pool.QueryRow(ctx, `SELECT last_round, taken_at FROM sync_state WHERE name=$1`, syncStateName)
	if err := row.Scan(&round, &takenAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.Checkpoint{}, false, nil
		}
		return storage.Checkpoint{}, false, err
	}
	return storage.Checkpoint{Round: uint64(round), TakenAt: takenAt}, true, nil
}

// SaveCheckpoint upserts the snapshot checkpoint.
func (s *Store) SaveCheckpoint(ctx context.Context, cp storage.Checkpoint) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_state (name, last_round, taken_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET last_round = EXCLUDED.last_round, taken_at = EXCLUDED.taken_at, updated_at = now()
	`, syncStateName, int64(cp.Round), cp.TakenAt.UTC())
	return err
}

func amount(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}
