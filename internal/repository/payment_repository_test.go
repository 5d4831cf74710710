package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academia-ops/academia-api/internal/models"
)

func newPaymentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPaymentRepositoryList(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "amount", "method", "note", "payment_date", "recorded_by", "created_at", "student_name", "total_tuition"}).
		AddRow("pay-1", "stu-1", 200.0, "transfer", "", time.Now(), nil, time.Now(), "Ana Souza", 500.0)
	mock.ExpectQuery("SELECT p.id, p.student_id").
		WithArgs("stu-1").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	payments, total, err := repo.List(context.Background(), models.PaymentFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, 500.0, payments[0].TotalTuition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryAmountsByStudent(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	rows := sqlmock.NewRows([]string{"amount"}).AddRow(200.0).AddRow(-50.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT amount FROM payments WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	amounts, err := repo.AmountsByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{200, -50}, amounts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryAllStudentAmounts(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "amount"}).
		AddRow("stu-1", 200.0).
		AddRow("stu-2", 300.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT p.student_id, p.amount FROM payments p JOIN students s ON s.id = p.student_id WHERE s.active = TRUE")).
		WillReturnRows(rows)

	amounts, err := repo.AllStudentAmounts(context.Background())
	require.NoError(t, err)
	require.Len(t, amounts, 2)
	assert.Equal(t, "stu-2", amounts[1].StudentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payment := &models.Payment{StudentID: "stu-1", Amount: -50, Method: "transfer"}
	err := repo.Create(context.Background(), payment)
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.False(t, payment.PaymentDate.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newPaymentMock(t)
	defer cleanup()
	repo := NewPaymentRepository(db)

	mock.ExpectExec("DELETE FROM payments").
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
