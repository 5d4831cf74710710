package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/academia-ops/academia-api/internal/models"
	"github.com/academia-ops/academia-api/internal/tuition"
	appErrors "github.com/academia-ops/academia-api/pkg/errors"
)

type paymentRepository interface {
	List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	AmountsByStudent(ctx context.Context, studentID string) ([]float64, error)
	Create(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id string) error
}

type paymentStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type paymentAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RecordPaymentRequest is the payload for recording a remittance.
// Amount must be non-zero; negative values record refunds.
type RecordPaymentRequest struct {
	StudentID   string     `json:"student_id" validate:"required"`
	Amount      float64    `json:"amount" validate:"required"`
	Method      string     `json:"method" validate:"required,oneof=cash transfer card"`
	Note        string     `json:"note"`
	PaymentDate *time.Time `json:"payment_date"`
}

// PaymentService provides payment recording and listing. Every response
// carries the student's account summary derived from stored payments at
// read time, so status can never go stale.
type PaymentService struct {
	repo      paymentRepository
	students  paymentStudentRepository
	audits    paymentAuditRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a PaymentService instance.
func NewPaymentService(repo paymentRepository, students paymentStudentRepository, audits paymentAuditRepository, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &PaymentService{repo: repo, students: students, audits: audits, validator: validate, logger: logger}
}

// List returns payment rows enriched with the owning student's derived
// account summary.
func (s *PaymentService) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentRow, models.Pagination, error) {
	payments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}

	// Summaries need each student's full payment history, not just the
	// rows on this page. Fetch once per distinct student.
	amountsByStudent := make(map[string][]float64)
	rows := make([]models.PaymentRow, 0, len(payments))
	for _, p := range payments {
		amounts, ok := amountsByStudent[p.StudentID]
		if !ok {
			amounts, err = s.repo.AmountsByStudent(ctx, p.StudentID)
			if err != nil {
				return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student payments")
			}
			amountsByStudent[p.StudentID] = amounts
		}
		rows = append(rows, models.PaymentRow{
			PaymentDetail: p,
			Account:       tuition.ComputeSummary(p.TotalTuition, amounts),
		})
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return rows, models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Record stores a new payment and returns the student's updated summary.
func (s *PaymentService) Record(ctx context.Context, req RecordPaymentRequest, recordedBy *string) (*models.PaymentRow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	student, err := s.students.FindByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	payment := &models.Payment{
		StudentID:  req.StudentID,
		Amount:     req.Amount,
		Method:     req.Method,
		Note:       req.Note,
		RecordedBy: recordedBy,
	}
	if req.PaymentDate != nil {
		payment.PaymentDate = *req.PaymentDate
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}

	if body, err := json.Marshal(payment); err == nil {
		if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     recordedBy,
			Action:     models.AuditActionPaymentRecord,
			Resource:   "payments",
			ResourceID: &payment.ID,
			NewValues:  body,
		}); err != nil {
			s.logger.Warn("failed to record payment audit log", zap.Error(err))
		}
	}

	amounts, err := s.repo.AmountsByStudent(ctx, req.StudentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student payments")
	}

	return &models.PaymentRow{
		PaymentDetail: models.PaymentDetail{
			Payment:      *payment,
			StudentName:  student.FullName,
			TotalTuition: student.TotalTuition,
		},
		Account: tuition.ComputeSummary(student.TotalTuition, amounts),
	}, nil
}

// Delete removes a payment. The student's summary reflects the removal
// on the next read.
func (s *PaymentService) Delete(ctx context.Context, id string, deletedBy *string) error {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "payment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete payment")
	}

	if body, err := json.Marshal(payment); err == nil {
		if err := s.audits.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     deletedBy,
			Action:     models.AuditActionPaymentDelete,
			Resource:   "payments",
			ResourceID: &id,
			OldValues:  body,
		}); err != nil {
			s.logger.Warn("failed to record payment delete audit log", zap.Error(err))
		}
	}

	return nil
}
