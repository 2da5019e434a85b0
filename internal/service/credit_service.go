package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuschain/credit-ledger-api/internal/dto"
	"github.com/campuschain/credit-ledger-api/internal/ledger"
	"github.com/campuschain/credit-ledger-api/internal/models"
	appErrors "github.com/campuschain/credit-ledger-api/pkg/errors"
	"github.com/campuschain/credit-ledger-api/pkg/export"
)

type creditAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type transcriptExporter interface {
	Render(t export.Transcript) ([]byte, error)
}

type ledgerObserver interface {
	ObserveLedgerOp(op string, err error)
}

// CreditService fronts the ledger for the HTTP layer. It resolves the
// caller's ledger account from JWT claims, validates payloads, forwards
// operations to the ledger and records the outcome in the audit trail.
// All reads go straight to the ledger, which is the source of truth; the
// Postgres mirror serves only external consumers.
type CreditService struct {
	ledger    *ledger.Ledger
	audit     creditAuditor
	validator *validator.Validate
	logger    *zap.Logger
	metrics   ledgerObserver
	csv       transcriptExporter
	pdf       transcriptExporter
	now       func() time.Time
}

// CreditServiceOption configures the service.
type CreditServiceOption func(*CreditService)

// WithLedgerObserver wires operation metrics.
func WithLedgerObserver(obs ledgerObserver) CreditServiceOption {
	return func(s *CreditService) {
		if obs != nil {
			s.metrics = obs
		}
	}
}

// WithExporters overrides the transcript exporters.
func WithExporters(csv, pdf transcriptExporter) CreditServiceOption {
	return func(s *CreditService) {
		if csv != nil {
			s.csv = csv
		}
		if pdf != nil {
			s.pdf = pdf
		}
	}
}

// NewCreditService constructs the service.
func NewCreditService(l *ledger.Ledger, audit creditAuditor, validate *validator.Validate, logger *zap.Logger, opts ...CreditServiceOption) *CreditService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &CreditService{
		ledger:    l,
		audit:     audit,
		validator: validate,
		logger:    logger,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Record submits a new credit entry as the actor's ledger account.
func (s *CreditService) Record(ctx context.Context, actor *models.JWTClaims, req dto.RecordCreditRequest) (ledger.CreditRecord, error) {
	caller, err := callerAccount(actor)
	if err != nil {
		return ledger.CreditRecord{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return ledger.CreditRecord{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid credit payload")
	}

	record, err := s.ledger.RecordCredit(caller, req.StudentID, req.CourseName, req.Score)
	s.observe("record_credit", err)
	if err != nil {
		return ledger.CreditRecord{}, err
	}

	s.emitAudit(ctx, actor, models.AuditActionCreditRecord, record.ID, record)
	s.logger.Info("credit recorded",
		zap.Uint64("record_id", record.ID),
		zap.String("student_id", record.StudentID),
		zap.String("teacher", record.Teacher),
	)
	return record, nil
}

// Approve marks a pending record approved as the actor's ledger account.
// The optional note goes to the audit trail only, never onto the ledger.
func (s *CreditService) Approve(ctx context.Context, actor *models.JWTClaims, recordID uint64, note dto.ReviewNote) (ledger.CreditRecord, error) {
	return s.review(ctx, actor, recordID, note, true)
}

// Reject marks a pending record rejected as the actor's ledger account.
// The optional note goes to the audit trail only, never onto the ledger.
func (s *CreditService) Reject(ctx context.Context, actor *models.JWTClaims, recordID uint64, note dto.ReviewNote) (ledger.CreditRecord, error) {
	return s.review(ctx, actor, recordID, note, false)
}

func (s *CreditService) review(ctx context.Context, actor *models.JWTClaims, recordID uint64, note dto.ReviewNote, approve bool) (ledger.CreditRecord, error) {
	caller, err := callerAccount(actor)
	if err != nil {
		return ledger.CreditRecord{}, err
	}
	if err := s.validator.Struct(note); err != nil {
		return ledger.CreditRecord{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review note")
	}

	var record ledger.CreditRecord
	var opErr error
	op := "reject_credit"
	action := models.AuditActionCreditReject
	if approve {
		op = "approve_credit"
		action = models.AuditActionCreditApprove
		record, opErr = s.ledger.ApproveCredit(caller, recordID)
	} else {
		record, opErr = s.ledger.RejectCredit(caller, recordID)
	}
	s.observe(op, opErr)
	if opErr != nil {
		return ledger.CreditRecord{}, opErr
	}

	s.emitAudit(ctx, actor, action, record.ID, struct {
		ledger.CreditRecord
		Note string `json:"note,omitempty"`
	}{record, note.Note})
	return record, nil
}

// AssignRole assigns a ledger role as the actor's ledger account.
func (s *CreditService) AssignRole(ctx context.Context, actor *models.JWTClaims, req dto.AssignRoleRequest) (dto.RoleResponse, error) {
	caller, err := callerAccount(actor)
	if err != nil {
		return dto.RoleResponse{}, err
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.RoleResponse{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid role payload")
	}
	role, ok := ledger.ParseRole(req.Role)
	if !ok {
		return dto.RoleResponse{}, appErrors.Clone(appErrors.ErrInvalidArgument, "unknown role")
	}

	opErr := s.ledger.AssignRole(caller, req.Account, role)
	s.observe("assign_role", opErr)
	if opErr != nil {
		return dto.RoleResponse{}, opErr
	}

	s.emitAudit(ctx, actor, models.AuditActionRoleAssign, 0, map[string]string{
		"account": req.Account,
		"role":    string(role),
	})
	return dto.RoleResponse{Account: req.Account, Role: string(role)}, nil
}

// Role returns the current ledger role of an account. Public read.
func (s *CreditService) Role(account string) dto.RoleResponse {
	return dto.RoleResponse{Account: account, Role: string(s.ledger.GetRole(account))}
}

// StudentCredits returns all of a student's records in creation order,
// any status. Public read.
func (s *CreditService) StudentCredits(studentID string) ([]ledger.CreditRecord, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidArgument, "student id is required")
	}
	return s.ledger.StudentCredits(studentID), nil
}

// PendingCredits returns every pending record in creation order.
func (s *CreditService) PendingCredits() []ledger.CreditRecord {
	return s.ledger.PendingCredits()
}

// Transcript renders a student's approved credits as CSV or PDF bytes and
// returns the content type.
func (s *CreditService) Transcript(ctx context.Context, studentID, format string) ([]byte, string, error) {
	if studentID == "" {
		return nil, "", appErrors.Clone(appErrors.ErrInvalidArgument, "student id is required")
	}

	transcript := export.Transcript{StudentID: studentID, GeneratedAt: s.now()}
	for _, record := range s.ledger.StudentCredits(studentID) {
		if record.Status != ledger.StatusApproved {
			continue
		}
		transcript.Rows = append(transcript.Rows, export.TranscriptRow{
			RecordID:   record.ID,
			CourseName: record.CourseName,
			Score:      record.Score,
			Teacher:    record.Teacher,
			Status:     string(record.Status),
			RecordedAt: record.CreatedAt,
		})
	}

	switch format {
	case "", "csv":
		data, err := s.csv.Render(transcript)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv transcript")
		}
		return data, "text/csv", nil
	case "pdf":
		data, err := s.pdf.Render(transcript)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf transcript")
		}
		return data, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrInvalidArgument, "format must be csv or pdf")
	}
}

func (s *CreditService) observe(op string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveLedgerOp(op, err)
	}
}

func (s *CreditService) emitAudit(ctx context.Context, actor *models.JWTClaims, action string, recordID uint64, payload interface{}) {
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(payload)
	resourceID := strconv.FormatUint(recordID, 10)
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "ledger",
		ResourceID: &resourceID,
		NewValues:  body,
	}); err != nil {
		s.logger.Warn("failed to record ledger audit log", zap.Error(err))
	}
}

func callerAccount(actor *models.JWTClaims) (string, error) {
	if actor == nil {
		return "", appErrors.ErrNoToken
	}
	if actor.Address == "" {
		return "", appErrors.Clone(appErrors.ErrInvalidArgument, "no ledger account bound to user")
	}
	return actor.Address, nil
}
