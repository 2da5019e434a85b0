package models

import (
	"time"

	"github.com/campuschain/credit-ledger-api/internal/ledger"
)

// CreditRow is the Postgres mirror of one ledger credit record. record_id is
// the ledger-assigned sequence id and the primary key; reviewed_by and
// reviewed_at are filled in when an approve or reject event is indexed.
type CreditRow struct {
	RecordID   uint64        `db:"record_id" json:"record_id"`
	StudentID  string        `db:"student_id" json:"student_id"`
	CourseName string        `db:"course_name" json:"course_name"`
	Score      int           `db:"score" json:"score"`
	Teacher    string        `db:"teacher" json:"teacher"`
	Status     ledger.Status `db:"status" json:"status"`
	ReviewedBy *string       `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time    `db:"reviewed_at" json:"reviewed_at,omitempty"`
	RecordedAt time.Time     `db:"recorded_at" json:"recorded_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}
