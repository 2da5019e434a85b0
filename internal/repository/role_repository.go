package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campuschain/credit-ledger-api/internal/models"
)

// RoleRepository mirrors the ledger's role registry.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new role repository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Upsert writes the current role for an account, last write wins.
func (r *RoleRepository) Upsert(ctx context.Context, binding *models.RoleBinding) error {
	if binding.UpdatedAt.IsZero() {
		binding.UpdatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO role_bindings (account, role, assigned_by, updated_at)
        VALUES (:account, :role, :assigned_by, :updated_at)
        ON CONFLICT (account)
        DO UPDATE SET role = EXCLUDED.role, assigned_by = EXCLUDED.assigned_by, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, binding); err != nil {
		return fmt.Errorf("upsert role binding: %w", err)
	}
	return nil
}

// Get returns the mirrored role binding for an account.
func (r *RoleRepository) Get(ctx context.Context, account string) (*models.RoleBinding, error) {
	const query = `SELECT account, role, assigned_by, updated_at FROM role_bindings WHERE account = $1 LIMIT 1`
	var binding models.RoleBinding
	if err := r.db.GetContext(ctx, &binding, query, account); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get role binding: %w", err)
	}
	return &binding, nil
}
