package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campuschain/credit-ledger-api/internal/ledger"
	"github.com/campuschain/credit-ledger-api/internal/models"
)

// CreditRepository maintains the Postgres mirror of the ledger's credit
// record store. The ledger remains the source of truth; rows here are
// written only by the event indexer.
type CreditRepository struct {
	db *sqlx.DB
}

// NewCreditRepository creates a new credit repository.
func NewCreditRepository(db *sqlx.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// Upsert inserts a mirrored record or refreshes it if the event is replayed.
func (r *CreditRepository) Upsert(ctx context.Context, row *models.CreditRow) error {
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO credits (record_id, student_id, course_name, score, teacher, status, recorded_at, updated_at)
        VALUES (:record_id, :student_id, :course_name, :score, :teacher, :status, :recorded_at, :updated_at)
        ON CONFLICT (record_id)
        DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert credit: %w", err)
	}
	return nil
}

// SetStatus applies a review decision to a mirrored record. A zero-row
// update means the record's CREDIT_RECORDED event has not been mirrored
// yet; it is reported as an error so the indexer queue retries the event
// instead of dropping it.
func (r *CreditRepository) SetStatus(ctx context.Context, recordID uint64, status ledger.Status, reviewedBy string, reviewedAt time.Time) error {
	const query = `UPDATE credits SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4 WHERE record_id = $1`
	res, err := r.db.ExecContext(ctx, query, recordID, status, reviewedBy, reviewedAt)
	if err != nil {
		return fmt.Errorf("set credit status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("set credit status: record %d not mirrored yet", recordID)
	}
	return nil
}

// Get returns a single mirrored record.
func (r *CreditRepository) Get(ctx context.Context, recordID uint64) (*models.CreditRow, error) {
	const query = `SELECT record_id, student_id, course_name, score, teacher, status, reviewed_by, reviewed_at, recorded_at, updated_at FROM credits WHERE record_id = $1 LIMIT 1`
	var row models.CreditRow
	if err := r.db.GetContext(ctx, &row, query, recordID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get credit: %w", err)
	}
	return &row, nil
}

// ListByStudent returns mirrored records for a student in creation order.
func (r *CreditRepository) ListByStudent(ctx context.Context, studentID string) ([]models.CreditRow, error) {
	const query = `SELECT record_id, student_id, course_name, score, teacher, status, reviewed_by, reviewed_at, recorded_at, updated_at FROM credits WHERE student_id = $1 ORDER BY record_id ASC`
	var rows []models.CreditRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID); err != nil {
		return nil, fmt.Errorf("list credits by student: %w", err)
	}
	return rows, nil
}

// ListPending returns mirrored pending records in creation order.
func (r *CreditRepository) ListPending(ctx context.Context) ([]models.CreditRow, error) {
	const query = `SELECT record_id, student_id, course_name, score, teacher, status, reviewed_by, reviewed_at, recorded_at, updated_at FROM credits WHERE status = $1 ORDER BY record_id ASC`
	var rows []models.CreditRow
	if err := r.db.SelectContext(ctx, &rows, query, ledger.StatusPending); err != nil {
		return nil, fmt.Errorf("list pending credits: %w", err)
	}
	return rows, nil
}
