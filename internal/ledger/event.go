package ledger

import "time"

// EventType identifies a ledger event.
type EventType string

const (
	EventRoleAssigned   EventType = "ROLE_ASSIGNED"
	EventCreditRecorded EventType = "CREDIT_RECORDED"
	EventCreditApproved EventType = "CREDIT_APPROVED"
	EventCreditRejected EventType = "CREDIT_REJECTED"
)

// Event is one entry of the append-only audit trail. Exactly one event is
// committed per successful mutation; failed operations commit nothing.
//
// Field usage by type:
//
//	ROLE_ASSIGNED:   Account, Role, Assigner
//	CREDIT_RECORDED: RecordID, StudentID, Teacher
//	CREDIT_APPROVED: RecordID, Admin
//	CREDIT_REJECTED: RecordID, Admin
type Event struct {
	Seq       uint64    `json:"seq"`
	Type      EventType `json:"type"`
	Account   string    `json:"account,omitempty"`
	Role      Role      `json:"role,omitempty"`
	Assigner  string    `json:"assigner,omitempty"`
	RecordID  *uint64   `json:"record_id,omitempty"`
	StudentID string    `json:"student_id,omitempty"`
	Teacher   string    `json:"teacher,omitempty"`
	Admin     string    `json:"admin,omitempty"`
	At        time.Time `json:"at"`
}

// Subscriber receives committed events in order.
type Subscriber func(Event)
