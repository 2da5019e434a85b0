package ledger

import (
	"strings"
	"sync"
	"time"

	appErrors "github.com/campuschain/credit-ledger-api/pkg/errors"
)

// Role is the single permission role held by an account.
type Role string

const (
	RoleNone    Role = "NONE"
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is one of the closed set of roles.
func (r Role) Valid() bool {
	switch r {
	case RoleNone, RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// ParseRole normalises a raw role string into the closed enumeration.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Status is the lifecycle state of a credit record.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Score bounds accepted by RecordCredit.
const (
	MinScore = 0
	MaxScore = 100
)

// CreditRecord is one course-credit claim for one student. Everything but
// Status is immutable after creation.
type CreditRecord struct {
	ID         uint64    `json:"id"`
	StudentID  string    `json:"student_id"`
	CourseName string    `json:"course_name"`
	Score      int       `json:"score"`
	Teacher    string    `json:"teacher"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Ledger is the authoritative role registry and credit record store. All
// mutations are serialized under a single mutex, validated up front, and
// either fully commit (state change plus event) or leave the ledger
// untouched.
type Ledger struct {
	mu      sync.Mutex
	roles   map[string]Role
	records []CreditRecord
	events  []Event
	subs    []Subscriber
	now     func() time.Time
}

// Option customises ledger construction.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a ledger and grants Admin to the bootstrap account. This is
// the only implicit role grant; no RoleAssigned event is emitted for it.
func New(bootstrapAdmin string, opts ...Option) *Ledger {
	l := &Ledger{
		roles: make(map[string]Role),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if bootstrapAdmin != "" {
		l.roles[bootstrapAdmin] = RoleAdmin
	}
	return l
}

// Subscribe registers fn to receive every event committed after this call,
// in commit order. fn runs inside the mutation's critical section and must
// not call back into the ledger.
func (l *Ledger) Subscribe(fn Subscriber) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

// AssignRole sets the role for an account, overwriting any prior value.
// Only admins may assign roles.
func (l *Ledger) AssignRole(caller, account string, role Role) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if account == "" {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "account is required")
	}
	if !role.Valid() {
		return appErrors.Clone(appErrors.ErrInvalidArgument, "unknown role")
	}
	if l.roles[caller] != RoleAdmin {
		return appErrors.Clone(appErrors.ErrUnauthorized, "only admins may assign roles")
	}

	l.roles[account] = role
	l.commit(Event{
		Type:     EventRoleAssigned,
		Account:  account,
		Role:     role,
		Assigner: caller,
	})
	return nil
}

// RecordCredit appends a pending credit record and returns it. Only
// teachers may record credits. The student id is an opaque roster
// identifier and is not checked against the role registry.
func (l *Ledger) RecordCredit(caller, studentID, courseName string, score int) (CreditRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if studentID == "" {
		return CreditRecord{}, appErrors.Clone(appErrors.ErrInvalidArgument, "student id is required")
	}
	if courseName == "" {
		return CreditRecord{}, appErrors.Clone(appErrors.ErrInvalidArgument, "course name is required")
	}
	if score < MinScore || score > MaxScore {
		return CreditRecord{}, appErrors.Clone(appErrors.ErrInvalidArgument, "score must be between 0 and 100")
	}
	if l.roles[caller] != RoleTeacher {
		return CreditRecord{}, appErrors.Clone(appErrors.ErrUnauthorized, "only teachers may record credits")
	}

	record := CreditRecord{
		ID:         uint64(len(l.records)),
		StudentID:  studentID,
		CourseName: courseName,
		Score:      score,
		Teacher:    caller,
		Status:     StatusPending,
		CreatedAt:  l.now(),
	}
	l.records = append(l.records, record)
	l.commit(Event{
		Type:      EventCreditRecorded,
		RecordID:  &record.ID,
		StudentID: studentID,
		Teacher:   caller,
	})
	return record, nil
}

// ApproveCredit marks a pending record approved. Only admins may review.
func (l *Ledger) ApproveCredit(caller string, recordID uint64) (CreditRecord, error) {
	return l.review(caller, recordID, StatusApproved, EventCreditApproved)
}

// RejectCredit marks a pending record rejected. Only admins may review.
func (l *Ledger) RejectCredit(caller string, recordID uint64) (CreditRecord, error) {
	return l.review(caller, recordID, StatusRejected, EventCreditRejected)
}

func (l *Ledger) review(caller string, recordID uint64, status Status, eventType EventType) (CreditRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.roles[caller] != RoleAdmin {
		return CreditRecord{}, appErrors.Clone(appErrors.ErrUnauthorized, "only admins may review credits")
	}
	if recordID >= uint64(len(l.records)) {
		return CreditRecord{}, appErrors.Clone(appErrors.ErrInvalidState, "credit record does not exist")
	}
	if l.records[recordID].Status != StatusPending {
		return CreditRecord{}, appErrors.Clone(appErrors.ErrInvalidState, "credit record already reviewed")
	}

	l.records[recordID].Status = status
	l.commit(Event{
		Type:     eventType,
		RecordID: &recordID,
		Admin:    caller,
	})
	return l.records[recordID], nil
}

// GetRole returns the current role for an account, RoleNone when never
// assigned. Public read.
func (l *Ledger) GetRole(account string) Role {
	l.mu.Lock()
	defer l.mu.Unlock()
	if role, ok := l.roles[account]; ok {
		return role
	}
	return RoleNone
}

// StudentCredits returns every record for the student, any status, in
// creation order. Public read.
func (l *Ledger) StudentCredits(studentID string) []CreditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []CreditRecord
	for _, record := range l.records {
		if record.StudentID == studentID {
			out = append(out, record)
		}
	}
	return out
}

// PendingCredits returns all pending records in creation order.
func (l *Ledger) PendingCredits() []CreditRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []CreditRecord
	for _, record := range l.records {
		if record.Status == StatusPending {
			out = append(out, record)
		}
	}
	return out
}

// Record returns a single record by id.
func (l *Ledger) Record(recordID uint64) (CreditRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if recordID >= uint64(len(l.records)) {
		return CreditRecord{}, false
	}
	return l.records[recordID], true
}

// RecordCount returns the number of records ever created.
func (l *Ledger) RecordCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Events returns a copy of the event log starting at the given sequence.
func (l *Ledger) Events(sinceSeq uint64) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if sinceSeq >= uint64(len(l.events)) {
		return nil
	}
	out := make([]Event, len(l.events)-int(sinceSeq))
	copy(out, l.events[sinceSeq:])
	return out
}

// commit appends the event and notifies subscribers. Caller holds l.mu, so
// state change and event are observed atomically.
func (l *Ledger) commit(event Event) {
	event.Seq = uint64(len(l.events))
	event.At = l.now()
	l.events = append(l.events, event)
	for _, fn := range l.subs {
		fn(event)
	}
}
