package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/academia-ops/academia-api/internal/models"
	"github.com/academia-ops/academia-api/internal/tuition"
	appErrors "github.com/academia-ops/academia-api/pkg/errors"
)

type paymentRepoStub struct {
	payments map[string]*models.Payment
	details  []models.PaymentDetail
	amounts  map[string][]float64
}

func newPaymentRepoStub() *paymentRepoStub {
	return &paymentRepoStub{
		payments: map[string]*models.Payment{},
		amounts:  map[string][]float64{},
	}
}

func (r *paymentRepoStub) List(ctx context.Context, filter models.PaymentFilter) ([]models.PaymentDetail, int, error) {
	return r.details, len(r.details), nil
}

func (r *paymentRepoStub) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (r *paymentRepoStub) AmountsByStudent(ctx context.Context, studentID string) ([]float64, error) {
	return r.amounts[studentID], nil
}

func (r *paymentRepoStub) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	r.payments[payment.ID] = payment
	r.amounts[payment.StudentID] = append(r.amounts[payment.StudentID], payment.Amount)
	return nil
}

func (r *paymentRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := r.payments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.payments, id)
	return nil
}

type paymentStudentStub struct {
	students map[string]*models.StudentDetail
}

func (r *paymentStudentStub) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	s, ok := r.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type auditStub struct {
	logs []models.AuditLog
}

func (r *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, *log)
	return nil
}

func newPaymentServiceFixture() (*PaymentService, *paymentRepoStub, *auditStub) {
	repo := newPaymentRepoStub()
	students := &paymentStudentStub{students: map[string]*models.StudentDetail{
		"stu-1": {Student: models.Student{ID: "stu-1", FullName: "Ana Souza", TotalTuition: 500, Active: true}},
	}}
	audits := &auditStub{}
	svc := NewPaymentService(repo, students, audits, nil, zap.NewNop())
	return svc, repo, audits
}

func TestPaymentServiceRecord(t *testing.T) {
	svc, _, audits := newPaymentServiceFixture()

	row, err := svc.Record(context.Background(), RecordPaymentRequest{
		StudentID: "stu-1",
		Amount:    200,
		Method:    "transfer",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Ana Souza", row.StudentName)
	assert.Equal(t, 200.0, row.Account.TotalPaid)
	assert.Equal(t, 300.0, row.Account.Balance)
	assert.Equal(t, tuition.StatusPartial, row.Account.Status)
	require.Len(t, audits.logs, 1)
	assert.Equal(t, models.AuditActionPaymentRecord, audits.logs[0].Action)
}

func TestPaymentServiceRecordRefund(t *testing.T) {
	svc, _, _ := newPaymentServiceFixture()

	_, err := svc.Record(context.Background(), RecordPaymentRequest{StudentID: "stu-1", Amount: 500, Method: "cash"}, nil)
	require.NoError(t, err)

	row, err := svc.Record(context.Background(), RecordPaymentRequest{StudentID: "stu-1", Amount: -100, Method: "transfer"}, nil)
	require.NoError(t, err)

	assert.Equal(t, 400.0, row.Account.TotalPaid)
	assert.Equal(t, tuition.StatusPartial, row.Account.Status)
}

func TestPaymentServiceRecordUnknownStudent(t *testing.T) {
	svc, _, _ := newPaymentServiceFixture()

	_, err := svc.Record(context.Background(), RecordPaymentRequest{StudentID: "missing", Amount: 100, Method: "cash"}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestPaymentServiceRecordRejectsZeroAmount(t *testing.T) {
	svc, _, _ := newPaymentServiceFixture()

	_, err := svc.Record(context.Background(), RecordPaymentRequest{StudentID: "stu-1", Amount: 0, Method: "cash"}, nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestPaymentServiceListDerivesSummaries(t *testing.T) {
	svc, repo, _ := newPaymentServiceFixture()
	repo.details = []models.PaymentDetail{
		{Payment: models.Payment{ID: "pay-1", StudentID: "stu-1", Amount: 200}, StudentName: "Ana Souza", TotalTuition: 500},
	}
	repo.amounts["stu-1"] = []float64{200, 300}

	rows, pagination, err := svc.List(context.Background(), models.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, tuition.StatusPaid, rows[0].Account.Status)
	assert.Equal(t, 0.0, rows[0].Account.Balance)
}

func TestPaymentServiceDelete(t *testing.T) {
	svc, repo, audits := newPaymentServiceFixture()
	repo.payments["pay-1"] = &models.Payment{ID: "pay-1", StudentID: "stu-1", Amount: 100}

	require.NoError(t, svc.Delete(context.Background(), "pay-1", nil))
	require.Len(t, audits.logs, 1)
	assert.Equal(t, models.AuditActionPaymentDelete, audits.logs[0].Action)

	err := svc.Delete(context.Background(), "pay-1", nil)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
