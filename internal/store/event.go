package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// sequenceCounter stamps every event with a global, strictly increasing
// sequence number. It lives in its own single-row table so that clearing
// the event log never reuses a number.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

func newSequenceCounter(ctx context.Context, db *sql.DB) (*sequenceCounter, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Insert(seqTable).
		Columns(seqID, seqNext).
		Values(1, 1).
		OnConflict(entsql.DoNothing()).
		Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{db: db}, nil
}

// Next reserves the next sequence number.
func (c *sequenceCounter) Next(ctx context.Context) (seq int64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	b := entsql.Dialect(dialect.SQLite)
	sel, args := b.Select(seqNext).From(b.Table(seqTable)).Where(entsql.EQ(seqID, 1)).Query()
	if err = tx.QueryRowContext(ctx, sel, args...).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read sequence: %w", err)
	}
	upd, args := b.Update(seqTable).Set(seqNext, seq+1).Where(entsql.EQ(seqID, 1)).Query()
	if _, err = tx.ExecContext(ctx, upd, args...); err != nil {
		return 0, fmt.Errorf("advance sequence: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit sequence: %w", err)
	}
	return seq, nil
}
