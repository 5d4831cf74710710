package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academia-ops/academia-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "phone", "guardian_id", "total_tuition", "active", "created_at", "updated_at", "guardian_name"}).
		AddRow("stu-1", "Ana Souza", "ana@example.com", "123", nil, 500.0, true, time.Now(), time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.full_name, s.email, s.phone, s.guardian_id, s.total_tuition, s.active, s.created_at, s.updated_at, g.full_name AS guardian_name FROM students s LEFT JOIN guardians g ON g.id = s.guardian_id WHERE 1=1 ORDER BY s.created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students s LEFT JOIN guardians g ON g.id = s.guardian_id WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "phone", "guardian_id", "total_tuition", "active", "created_at", "updated_at", "guardian_name"})
	mock.ExpectQuery("SELECT s.id, s.full_name").
		WithArgs("%ana%").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("%ana%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	students, total, err := repo.List(context.Background(), models.StudentFilter{Search: "Ana"})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "phone", "guardian_id", "total_tuition", "active", "created_at", "updated_at", "guardian_name"}).
		AddRow("stu-1", "Ana Souza", "ana@example.com", "123", "gua-1", 500.0, true, time.Now(), time.Now(), "Maria Souza")
	mock.ExpectQuery("SELECT s.id, s.full_name").
		WithArgs("stu-1").
		WillReturnRows(rows)

	student, err := repo.FindByID(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", student.FullName)
	require.NotNil(t, student.GuardianName)
	assert.Equal(t, "Maria Souza", *student.GuardianName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("INSERT INTO students").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	student := &models.Student{FullName: "Ana Souza", Email: "ana@example.com", TotalTuition: 500, Active: true}
	err := repo.Create(context.Background(), student)
	require.NoError(t, err)
	assert.NotEmpty(t, student.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryTuitionByStudent(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "full_name", "total_tuition"}).
		AddRow("stu-1", "Ana Souza", 500.0).
		AddRow("stu-2", "Bruno Lima", 300.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id AS student_id, full_name, total_tuition FROM students WHERE active = TRUE")).
		WillReturnRows(rows)

	tuition, err := repo.TuitionByStudent(context.Background())
	require.NoError(t, err)
	require.Len(t, tuition, 2)
	assert.Equal(t, 500.0, tuition[0].TotalTuition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"total", "active"}).AddRow(10, 8))

	total, active, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Equal(t, 8, active)
	assert.NoError(t, mock.ExpectationsWereMet())
}
