package models

import (
	"encoding/json"
	"time"

	"github.com/campuschain/credit-ledger-api/internal/ledger"
)

// EventRow persists one ledger event for the off-chain audit trail. Payload
// holds the JSON encoding of the full ledger event.
type EventRow struct {
	Seq       uint64           `db:"seq" json:"seq"`
	Type      ledger.EventType `db:"type" json:"type"`
	Payload   json.RawMessage  `db:"payload" json:"payload"`
	EmittedAt time.Time        `db:"emitted_at" json:"emitted_at"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}
