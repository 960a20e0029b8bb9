package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// JournalRepository appends vend/restock audit rows. The journal is
// write-only for the engine: machine stock is in-memory state rebuilt
// on spawn and never restored from these rows.
type JournalRepository struct {
	db *pgxpool.Pool
}

// NewJournalRepository creates a JournalRepository.
func NewJournalRepository(db *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{db: db}
}

// InsertVend records a successful vend.
func (r *JournalRepository) InsertVend(ctx context.Context, machineID, item, actor string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO vend_events (machine_id, event_type, item, actor, occurred_at)
		 VALUES ($1, 'vend', $2, $3, $4)`,
		machineID, item, actor, at,
	)
	if err != nil {
		return fmt.Errorf("inserting vend event for machine %s: %w", machineID, err)
	}
	return nil
}

// InsertRestock records an accepted restock cartridge.
func (r *JournalRepository) InsertRestock(ctx context.Context, machineID, serial string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO vend_events (machine_id, event_type, serial, occurred_at)
		 VALUES ($1, 'restock', $2, $3)`,
		machineID, serial, at,
	)
	if err != nil {
		return fmt.Errorf("inserting restock event for machine %s: %w", machineID, err)
	}
	return nil
}

// CountVends returns the number of vend rows for a machine. Used by
// admin tooling and integration tests.
func (r *JournalRepository) CountVends(ctx context.Context, machineID string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM vend_events WHERE machine_id = $1 AND event_type = 'vend'`,
		machineID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting vend events for machine %s: %w", machineID, err)
	}
	return n, nil
}
