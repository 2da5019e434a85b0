package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campuschain/credit-ledger-api/internal/models"
)

// EventRepository persists the ledger's event log for the off-chain audit
// trail. seq is the ledger-assigned sequence number and primary key, so
// replayed events are idempotent.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends an event row, ignoring replays of an already stored seq.
func (r *EventRepository) Insert(ctx context.Context, row *models.EventRow) error {
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO ledger_events (seq, type, payload, emitted_at, created_at)
        VALUES (:seq, :type, :payload, :emitted_at, :created_at)
        ON CONFLICT (seq) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert ledger event: %w", err)
	}
	return nil
}

// ListSince returns stored events with seq >= since, oldest first.
func (r *EventRepository) ListSince(ctx context.Context, since uint64, limit int) ([]models.EventRow, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	const query = `SELECT seq, type, payload, emitted_at, created_at FROM ledger_events WHERE seq >= $1 ORDER BY seq ASC LIMIT $2`
	var rows []models.EventRow
	if err := r.db.SelectContext(ctx, &rows, query, since, limit); err != nil {
		return nil, fmt.Errorf("list ledger events: %w", err)
	}
	return rows, nil
}
