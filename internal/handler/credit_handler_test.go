package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campuschain/credit-ledger-api/internal/dto"
	"github.com/campuschain/credit-ledger-api/internal/ledger"
	"github.com/campuschain/credit-ledger-api/internal/middleware"
	"github.com/campuschain/credit-ledger-api/internal/models"
	"github.com/campuschain/credit-ledger-api/internal/service"
	"github.com/campuschain/credit-ledger-api/pkg/response"
)

func newCreditFixture(t *testing.T) (*CreditHandler, *ledger.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l := ledger.New("0xadmin")
	require.NoError(t, l.AssignRole("0xadmin", "0xteacher", ledger.RoleTeacher))
	svc := service.NewCreditService(l, nil, nil, zap.NewNop())
	return NewCreditHandler(svc), l
}

func testClaims(address string, role ledger.Role) *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", Email: "u@campus.test", Address: address, Role: role}
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestCreditHandlerRecord(t *testing.T) {
	handler, l := newCreditFixture(t)

	payload, _ := json.Marshal(dto.RecordCreditRequest{StudentID: "S1", CourseName: "Algorithms", Score: 88})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/credits", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims("0xteacher", ledger.RoleTeacher))

	handler.Record(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, l.RecordCount())

	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Data)
}

func TestCreditHandlerRecordInvalidBody(t *testing.T) {
	handler, _ := newCreditFixture(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/credits", bytes.NewBufferString(`{"student_id":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims("0xteacher", ledger.RoleTeacher))

	handler.Record(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreditHandlerRecordUnauthorizedRole(t *testing.T) {
	handler, l := newCreditFixture(t)

	payload, _ := json.Marshal(dto.RecordCreditRequest{StudentID: "S1", CourseName: "Algorithms", Score: 88})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/credits", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, testClaims("0xintruder", ledger.RoleNone))

	handler.Record(c)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, l.RecordCount())
}

func TestCreditHandlerApprove(t *testing.T) {
	handler, l := newCreditFixture(t)
	record, err := l.RecordCredit("0xteacher", "S1", "Algorithms", 88)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/credits/0/approve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "0"}}
	c.Set(middleware.ContextUserKey, testClaims("0xadmin", ledger.RoleAdmin))

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)

	updated, ok := l.Record(record.ID)
	require.True(t, ok)
	assert.Equal(t, ledger.StatusApproved, updated.Status)
}

func TestCreditHandlerApproveWithNote(t *testing.T) {
	handler, l := newCreditFixture(t)
	record, err := l.RecordCredit("0xteacher", "S1", "Algorithms", 88)
	require.NoError(t, err)

	payload, _ := json.Marshal(dto.ReviewNote{Note: "checked against the syllabus"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/credits/0/approve", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "0"}}
	c.Set(middleware.ContextUserKey, testClaims("0xadmin", ledger.RoleAdmin))

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)

	updated, ok := l.Record(record.ID)
	require.True(t, ok)
	assert.Equal(t, ledger.StatusApproved, updated.Status)
}

func TestCreditHandlerApproveMalformedNote(t *testing.T) {
	handler, l := newCreditFixture(t)
	record, err := l.RecordCredit("0xteacher", "S1", "Algorithms", 88)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/credits/0/approve", bytes.NewBufferString(`{"note":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "0"}}
	c.Set(middleware.ContextUserKey, testClaims("0xadmin", ledger.RoleAdmin))

	handler.Approve(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	untouched, ok := l.Record(record.ID)
	require.True(t, ok)
	assert.Equal(t, ledger.StatusPending, untouched.Status)
}

func TestCreditHandlerApproveBadID(t *testing.T) {
	handler, _ := newCreditFixture(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/credits/abc/approve", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Set(middleware.ContextUserKey, testClaims("0xadmin", ledger.RoleAdmin))

	handler.Approve(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreditHandlerRejectTerminalRecord(t *testing.T) {
	handler, l := newCreditFixture(t)
	record, err := l.RecordCredit("0xteacher", "S1", "Algorithms", 88)
	require.NoError(t, err)
	_, err = l.ApproveCredit("0xadmin", record.ID)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/credits/0/reject", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "0"}}
	c.Set(middleware.ContextUserKey, testClaims("0xadmin", ledger.RoleAdmin))

	handler.Reject(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestCreditHandlerStudentCredits(t *testing.T) {
	handler, l := newCreditFixture(t)
	_, err := l.RecordCredit("0xteacher", "S1", "Algorithms", 88)
	require.NoError(t, err)
	_, err = l.RecordCredit("0xteacher", "S2", "Databases", 70)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/credits/student/S1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "studentId", Value: "S1"}}

	handler.StudentCredits(c)
	require.Equal(t, http.StatusOK, w.Code)

	envelope := decodeEnvelope(t, w)
	records, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, records, 1)
}

func TestCreditHandlerTranscriptCSV(t *testing.T) {
	handler, l := newCreditFixture(t)
	record, err := l.RecordCredit("0xteacher", "S1", "Algorithms", 88)
	require.NoError(t, err)
	_, err = l.ApproveCredit("0xadmin", record.ID)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/credits/student/S1/transcript?format=csv", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "studentId", Value: "S1"}}

	handler.Transcript(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transcript-S1.csv")
	assert.True(t, strings.Contains(w.Body.String(), "Algorithms"))
}

func TestCreditHandlerTranscriptBadFormat(t *testing.T) {
	handler, _ := newCreditFixture(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/credits/student/S1/transcript?format=xlsx", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "studentId", Value: "S1"}}

	handler.Transcript(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
