// Package postgres persists pool events to Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DaggerToothCaster/v3-core/lib/journal"
)

// Store provides Postgres persistence for the event journal.
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

// PutEventBatch inserts a batch of events; replayed sequence numbers update
// the existing row.
func (s *Store) PutEventBatch(ctx context.Context, events []journal.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(`
			INSERT INTO pool_events (
				pool, seq, ts, op, owner, recipient, tick_lower, tick_upper,
				amount0, amount1, sqrt_price_x96, tick, liquidity, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
			ON CONFLICT (pool, seq)
			DO UPDATE SET
				ts = EXCLUDED.ts,
				op = EXCLUDED.op,
				owner = EXCLUDED.owner,
				recipient = EXCLUDED.recipient,
				tick_lower = EXCLUDED.tick_lower,
				tick_upper = EXCLUDED.tick_upper,
				amount0 = EXCLUDED.amount0,
				amount1 = EXCLUDED.amount1,
				sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
				tick = EXCLUDED.tick,
				liquidity = EXCLUDED.liquidity
		`,
			e.Pool,
			int64(e.Seq),
			int64(e.Timestamp),
			e.Op,
			e.Owner,
			e.Recipient,
			e.TickLower,
			e.TickUpper,
			e.Amount0,
			e.Amount1,
			e.SqrtPriceX96,
			e.Tick,
			e.Liquidity,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range events {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LastSeq returns the highest recorded sequence number for a pool.
func (s *Store) LastSeq(ctx context.Context, poolAddress string) (uint64, bool, error) {
	if poolAddress == "" {
		return 0, false, fmt.Errorf("pool address required")
	}
	var seq int64
	row := s.pool.QueryRow(ctx, `SELECT max(seq) FROM pool_events WHERE pool=$1`, poolAddress)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(seq), true, nil
}
