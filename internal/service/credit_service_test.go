package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuschain/credit-ledger-api/internal/dto"
	"github.com/campuschain/credit-ledger-api/internal/ledger"
	"github.com/campuschain/credit-ledger-api/internal/models"
	appErrors "github.com/campuschain/credit-ledger-api/pkg/errors"
)

type mockAuditor struct {
	logs []models.AuditLog
	err  error
}

func (m *mockAuditor) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, *log)
	return nil
}

type mockObserver struct {
	ops      []string
	failures int
}

func (m *mockObserver) ObserveLedgerOp(op string, err error) {
	m.ops = append(m.ops, op)
	if err != nil {
		m.failures++
	}
}

func newLedgerFixture(t *testing.T) *ledger.Ledger {
	t.Helper()
	l := ledger.New("0xadmin")
	require.NoError(t, l.AssignRole("0xadmin", "0xteacher", ledger.RoleTeacher))
	require.NoError(t, l.AssignRole("0xadmin", "0xstudent", ledger.RoleStudent))
	return l
}

func claimsFor(address string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-" + address, Email: address + "@campus.test", Address: address}
}

func TestCreditServiceRecord(t *testing.T) {
	l := newLedgerFixture(t)
	audit := &mockAuditor{}
	obs := &mockObserver{}
	svc := NewCreditService(l, audit, nil, zap.NewNop(), WithLedgerObserver(obs))

	record, err := svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{
		StudentID:  "S1",
		CourseName: "Algorithms",
		Score:      88,
	})
	require.NoError(t, err)

	assert.Equal(t, uint64(0), record.ID)
	assert.Equal(t, ledger.StatusPending, record.Status)
	assert.Equal(t, "0xteacher", record.Teacher)
	assert.Equal(t, []string{"record_credit"}, obs.ops)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionCreditRecord, audit.logs[0].Action)
}

func TestCreditServiceRecordRequiresTeacher(t *testing.T) {
	l := newLedgerFixture(t)
	obs := &mockObserver{}
	svc := NewCreditService(l, &mockAuditor{}, nil, zap.NewNop(), WithLedgerObserver(obs))

	_, err := svc.Record(context.Background(), claimsFor("0xstudent"), dto.RecordCreditRequest{
		StudentID:  "S1",
		CourseName: "Algorithms",
		Score:      88,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
	assert.Equal(t, 1, obs.failures)
}

func TestCreditServiceRecordValidation(t *testing.T) {
	l := newLedgerFixture(t)
	svc := NewCreditService(l, &mockAuditor{}, nil, zap.NewNop())

	_, err := svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{
		StudentID: "S1",
		Score:     50,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Equal(t, 0, l.RecordCount())
}

func TestCreditServiceRecordRejectsMissingClaims(t *testing.T) {
	svc := NewCreditService(newLedgerFixture(t), &mockAuditor{}, nil, zap.NewNop())

	_, err := svc.Record(context.Background(), nil, dto.RecordCreditRequest{
		StudentID: "S1", CourseName: "Algorithms", Score: 50,
	})
	assert.True(t, errors.Is(err, appErrors.ErrNoToken))

	_, err = svc.Record(context.Background(), &models.JWTClaims{UserID: "u1"}, dto.RecordCreditRequest{
		StudentID: "S1", CourseName: "Algorithms", Score: 50,
	})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidArgument))
}

func TestCreditServiceApproveAndReject(t *testing.T) {
	l := newLedgerFixture(t)
	audit := &mockAuditor{}
	obs := &mockObserver{}
	svc := NewCreditService(l, audit, nil, zap.NewNop(), WithLedgerObserver(obs))

	first, err := svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{StudentID: "S1", CourseName: "Algorithms", Score: 88})
	require.NoError(t, err)
	second, err := svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{StudentID: "S1", CourseName: "Databases", Score: 70})
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), claimsFor("0xadmin"), first.ID, dto.ReviewNote{})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, approved.Status)

	rejected, err := svc.Reject(context.Background(), claimsFor("0xadmin"), second.ID, dto.ReviewNote{})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusRejected, rejected.Status)

	// terminal records cannot be reviewed again
	_, err = svc.Approve(context.Background(), claimsFor("0xadmin"), first.ID, dto.ReviewNote{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	// the recording teacher cannot approve
	_, err = svc.Approve(context.Background(), claimsFor("0xteacher"), second.ID, dto.ReviewNote{})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	assert.Contains(t, obs.ops, "approve_credit")
	assert.Contains(t, obs.ops, "reject_credit")
	require.Len(t, audit.logs, 4)
	assert.Equal(t, models.AuditActionCreditApprove, audit.logs[2].Action)
	assert.Equal(t, models.AuditActionCreditReject, audit.logs[3].Action)
}

func TestCreditServiceReviewNoteAudited(t *testing.T) {
	l := newLedgerFixture(t)
	audit := &mockAuditor{}
	svc := NewCreditService(l, audit, nil, zap.NewNop())

	first, err := svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{StudentID: "S1", CourseName: "Algorithms", Score: 88})
	require.NoError(t, err)
	second, err := svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{StudentID: "S1", CourseName: "Databases", Score: 55})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), claimsFor("0xadmin"), first.ID, dto.ReviewNote{Note: "verified with registrar"})
	require.NoError(t, err)
	require.Len(t, audit.logs, 3)
	assert.Contains(t, string(audit.logs[2].NewValues), `"note":"verified with registrar"`)

	// notes never reach the ledger
	updated, ok := l.Record(first.ID)
	require.True(t, ok)
	assert.Equal(t, ledger.StatusApproved, updated.Status)

	// oversized notes are rejected before the ledger is touched
	_, err = svc.Reject(context.Background(), claimsFor("0xadmin"), second.ID, dto.ReviewNote{Note: strings.Repeat("x", 300)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	pending, ok := l.Record(second.ID)
	require.True(t, ok)
	assert.Equal(t, ledger.StatusPending, pending.Status)
}

func TestCreditServiceAssignRole(t *testing.T) {
	l := newLedgerFixture(t)
	svc := NewCreditService(l, &mockAuditor{}, nil, zap.NewNop())

	resp, err := svc.AssignRole(context.Background(), claimsFor("0xadmin"), dto.AssignRoleRequest{
		Account: "0xnew",
		Role:    "TEACHER",
	})
	require.NoError(t, err)
	assert.Equal(t, "TEACHER", resp.Role)
	assert.Equal(t, ledger.RoleTeacher, l.GetRole("0xnew"))

	_, err = svc.AssignRole(context.Background(), claimsFor("0xadmin"), dto.AssignRoleRequest{
		Account: "0xnew",
		Role:    "PRINCIPAL",
	})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidArgument))

	_, err = svc.AssignRole(context.Background(), claimsFor("0xstudent"), dto.AssignRoleRequest{
		Account: "0xnew",
		Role:    "STUDENT",
	})
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestCreditServiceRole(t *testing.T) {
	svc := NewCreditService(newLedgerFixture(t), &mockAuditor{}, nil, zap.NewNop())

	assert.Equal(t, "TEACHER", svc.Role("0xteacher").Role)
	assert.Equal(t, "NONE", svc.Role("0xunknown").Role)
}

func TestCreditServiceStudentCredits(t *testing.T) {
	svc := NewCreditService(newLedgerFixture(t), &mockAuditor{}, nil, zap.NewNop())

	_, err := svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{StudentID: "S1", CourseName: "Algorithms", Score: 88})
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{StudentID: "S2", CourseName: "Databases", Score: 75})
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{StudentID: "S1", CourseName: "Networks", Score: 91})
	require.NoError(t, err)

	records, err := svc.StudentCredits("S1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Algorithms", records[0].CourseName)
	assert.Equal(t, "Networks", records[1].CourseName)

	_, err = svc.StudentCredits("")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidArgument))

	pending := svc.PendingCredits()
	assert.Len(t, pending, 3)
}

func TestCreditServiceTranscript(t *testing.T) {
	l := newLedgerFixture(t)
	svc := NewCreditService(l, &mockAuditor{}, nil, zap.NewNop())

	approvedRec, err := svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{StudentID: "S1", CourseName: "Algorithms", Score: 88})
	require.NoError(t, err)
	_, err = svc.Record(context.Background(), claimsFor("0xteacher"), dto.RecordCreditRequest{StudentID: "S1", CourseName: "Databases", Score: 42})
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), claimsFor("0xadmin"), approvedRec.ID, dto.ReviewNote{})
	require.NoError(t, err)

	data, contentType, err := svc.Transcript(context.Background(), "S1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	body := string(data)
	assert.True(t, strings.Contains(body, "Algorithms"))
	assert.False(t, strings.Contains(body, "Databases"), "pending records are excluded from transcripts")

	pdfData, pdfType, err := svc.Transcript(context.Background(), "S1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdfType)
	assert.NotEmpty(t, pdfData)

	_, _, err = svc.Transcript(context.Background(), "S1", "xlsx")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidArgument))

	_, _, err = svc.Transcript(context.Background(), "", "csv")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidArgument))
}
