package models

import (
	"time"

	"github.com/campuschain/credit-ledger-api/internal/ledger"
)

// User represents an application user stored in the users table. Address is
// the on-ledger account identity the user acts as; Role mirrors the role
// registry and is refreshed by the event indexer.
type User struct {
	ID           string      `db:"id" json:"id"`
	Email        string      `db:"email" json:"email"`
	PasswordHash string      `db:"password_hash" json:"-"`
	FullName     string      `db:"full_name" json:"full_name"`
	Address      string      `db:"address" json:"address"`
	Role         ledger.Role `db:"role" json:"role"`
	Active       bool        `db:"active" json:"active"`
	LastLogin    *time.Time  `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}

// RoleBinding mirrors one role registry entry of the ledger.
type RoleBinding struct {
	Account    string      `db:"account" json:"account"`
	Role       ledger.Role `db:"role" json:"role"`
	AssignedBy string      `db:"assigned_by" json:"assigned_by"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}
