package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/campuschain/credit-ledger-api/pkg/errors"
)

const (
	owner   = "0xowner"
	teacher = "0xteacher"
	admin   = "0xadmin"
	student = "0xstudent"
	random  = "0xrandom"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	l := New(owner, WithClock(func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}))
	require.NoError(t, l.AssignRole(owner, teacher, RoleTeacher))
	require.NoError(t, l.AssignRole(owner, admin, RoleAdmin))
	require.NoError(t, l.AssignRole(owner, student, RoleStudent))
	return l
}

func TestBootstrapAdmin(t *testing.T) {
	l := New(owner)
	assert.Equal(t, RoleAdmin, l.GetRole(owner))
	// the implicit grant must not appear in the event log
	assert.Empty(t, l.Events(0))
}

func TestGetRoleDefaultsToNone(t *testing.T) {
	l := newLedger(t)
	assert.Equal(t, RoleNone, l.GetRole("0xnever-assigned"))
}

func TestAssignRoleLastWriteWins(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.AssignRole(owner, random, RoleStudent))
	require.NoError(t, l.AssignRole(owner, random, RoleTeacher))
	require.NoError(t, l.AssignRole(admin, random, RoleNone))
	assert.Equal(t, RoleNone, l.GetRole(random))
}

func TestAssignRoleRequiresAdmin(t *testing.T) {
	l := newLedger(t)
	err := l.AssignRole(teacher, random, RoleTeacher)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Equal(t, RoleNone, l.GetRole(random))

	// no self-assignment bypass
	err = l.AssignRole(random, random, RoleAdmin)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestAssignRoleRejectsUnknownRole(t *testing.T) {
	l := newLedger(t)
	err := l.AssignRole(owner, random, Role("WIZARD"))
	assert.True(t, errors.Is(err, appErrors.ErrInvalidArgument))

	err = l.AssignRole(owner, "", RoleStudent)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidArgument))
}

func TestRecordCredit(t *testing.T) {
	l := newLedger(t)
	record, err := l.RecordCredit(teacher, "S1", "Algorithms", 88)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), record.ID)
	assert.Equal(t, "S1", record.StudentID)
	assert.Equal(t, "Algorithms", record.CourseName)
	assert.Equal(t, 88, record.Score)
	assert.Equal(t, teacher, record.Teacher)
	assert.Equal(t, StatusPending, record.Status)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestRecordCreditByNonTeacher(t *testing.T) {
	l := newLedger(t)
	for _, caller := range []string{random, admin, student, owner} {
		_, err := l.RecordCredit(caller, "S1", "Algorithms", 88)
		require.Error(t, err, "caller %s", caller)
		assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	}
	assert.Equal(t, 0, l.RecordCount())
	assert.Len(t, l.Events(0), 3) // only the three setup role assignments
}

func TestRecordCreditValidation(t *testing.T) {
	l := newLedger(t)
	cases := []struct {
		name      string
		studentID string
		course    string
		score     int
	}{
		{"empty student", "", "Algorithms", 88},
		{"empty course", "S1", "", 88},
		{"score below range", "S1", "Algorithms", -1},
		{"score above range", "S1", "Algorithms", 101},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.RecordCredit(teacher, tc.studentID, tc.course, tc.score)
			assert.True(t, errors.Is(err, appErrors.ErrInvalidArgument))
		})
	}
	assert.Equal(t, 0, l.RecordCount())
}

func TestRecordIDsAreDenseAndOrdered(t *testing.T) {
	l := newLedger(t)
	for i := 0; i < 5; i++ {
		record, err := l.RecordCredit(teacher, "S1", "Course", 70)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), record.ID)
	}
	// a failed operation must not burn an id
	_, err := l.RecordCredit(random, "S1", "Course", 70)
	require.Error(t, err)
	record, err := l.RecordCredit(teacher, "S1", "Course", 70)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), record.ID)
}

func TestApproveCredit(t *testing.T) {
	l := newLedger(t)
	_, err := l.RecordCredit(teacher, "S1", "Algorithms", 88)
	require.NoError(t, err)

	record, err := l.ApproveCredit(admin, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, record.Status)

	// terminal state: re-approval and reversal both fail
	_, err = l.ApproveCredit(admin, 0)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	_, err = l.RejectCredit(admin, 0)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	stored, ok := l.Record(0)
	require.True(t, ok)
	assert.Equal(t, StatusApproved, stored.Status)
}

func TestRejectCredit(t *testing.T) {
	l := newLedger(t)
	_, err := l.RecordCredit(teacher, "S1", "Algorithms", 88)
	require.NoError(t, err)

	record, err := l.RejectCredit(admin, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, record.Status)

	_, err = l.ApproveCredit(admin, 0)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
}

func TestReviewRequiresAdmin(t *testing.T) {
	l := newLedger(t)
	_, err := l.RecordCredit(teacher, "S1", "Algorithms", 88)
	require.NoError(t, err)

	_, err = l.ApproveCredit(teacher, 0)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	_, err = l.RejectCredit(random, 0)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	stored, _ := l.Record(0)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestReviewMissingRecord(t *testing.T) {
	l := newLedger(t)
	_, err := l.ApproveCredit(admin, 42)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
	_, err = l.RejectCredit(admin, 42)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))
}

func TestStudentCreditsInterleaved(t *testing.T) {
	l := newLedger(t)
	_, err := l.RecordCredit(teacher, "S1", "Algorithms", 88)
	require.NoError(t, err)
	_, err = l.RecordCredit(teacher, "S2", "Databases", 75)
	require.NoError(t, err)
	_, err = l.RecordCredit(teacher, "S1", "Networks", 91)
	require.NoError(t, err)
	_, err = l.RejectCredit(admin, 2)
	require.NoError(t, err)

	credits := l.StudentCredits("S1")
	require.Len(t, credits, 2)
	assert.Equal(t, uint64(0), credits[0].ID)
	assert.Equal(t, uint64(2), credits[1].ID)
	// any status is included
	assert.Equal(t, StatusRejected, credits[1].Status)

	assert.Empty(t, l.StudentCredits("S3"))
}

func TestPendingCredits(t *testing.T) {
	l := newLedger(t)
	for i := 0; i < 4; i++ {
		_, err := l.RecordCredit(teacher, "S1", "Course", 60)
		require.NoError(t, err)
	}
	_, err := l.ApproveCredit(admin, 1)
	require.NoError(t, err)
	_, err = l.RejectCredit(admin, 2)
	require.NoError(t, err)

	pending := l.PendingCredits()
	require.Len(t, pending, 2)
	assert.Equal(t, uint64(0), pending[0].ID)
	assert.Equal(t, uint64(3), pending[1].ID)
}

func TestEventLog(t *testing.T) {
	l := New(owner)
	require.NoError(t, l.AssignRole(owner, teacher, RoleTeacher))
	record, err := l.RecordCredit(teacher, "S1", "Algorithms", 88)
	require.NoError(t, err)
	_, err = l.ApproveCredit(owner, record.ID)
	require.NoError(t, err)

	events := l.Events(0)
	require.Len(t, events, 3)

	assert.Equal(t, EventRoleAssigned, events[0].Type)
	assert.Equal(t, teacher, events[0].Account)
	assert.Equal(t, RoleTeacher, events[0].Role)
	assert.Equal(t, owner, events[0].Assigner)

	assert.Equal(t, EventCreditRecorded, events[1].Type)
	require.NotNil(t, events[1].RecordID)
	assert.Equal(t, uint64(0), *events[1].RecordID)
	assert.Equal(t, "S1", events[1].StudentID)
	assert.Equal(t, teacher, events[1].Teacher)

	assert.Equal(t, EventCreditApproved, events[2].Type)
	assert.Equal(t, owner, events[2].Admin)

	for i, event := range events {
		assert.Equal(t, uint64(i), event.Seq)
	}

	assert.Len(t, l.Events(2), 1)
	assert.Empty(t, l.Events(3))
}

func TestSubscriberSeesCommittedEvents(t *testing.T) {
	l := New(owner)
	var seen []Event
	l.Subscribe(func(e Event) { seen = append(seen, e) })

	require.NoError(t, l.AssignRole(owner, teacher, RoleTeacher))
	_, err := l.RecordCredit(random, "S1", "Algorithms", 88)
	require.Error(t, err)

	// failed mutations never reach subscribers
	require.Len(t, seen, 1)
	assert.Equal(t, EventRoleAssigned, seen[0].Type)
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" teacher ")
	assert.True(t, ok)
	assert.Equal(t, RoleTeacher, role)

	_, ok = ParseRole("principal")
	assert.False(t, ok)
}
