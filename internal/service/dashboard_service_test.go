package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/academia-ops/academia-api/internal/models"
)

type dashboardStudentStub struct {
	total   int
	active  int
	tuition []models.StudentTuition
}

func (s *dashboardStudentStub) Counts(ctx context.Context) (int, int, error) {
	return s.total, s.active, nil
}

func (s *dashboardStudentStub) TuitionByStudent(ctx context.Context) ([]models.StudentTuition, error) {
	return s.tuition, nil
}

type dashboardPaymentStub struct {
	amounts []models.StudentAmount
}

func (s *dashboardPaymentStub) AllStudentAmounts(ctx context.Context) ([]models.StudentAmount, error) {
	return s.amounts, nil
}

type dashboardGradeStub struct {
	scores []float64
	err    error
}

func (s *dashboardGradeStub) AllScores(ctx context.Context) ([]float64, error) {
	return s.scores, s.err
}

func TestDashboardServiceOverview(t *testing.T) {
	students := &dashboardStudentStub{
		total:  3,
		active: 2,
		tuition: []models.StudentTuition{
			{StudentID: "stu-1", FullName: "Ana", TotalTuition: 500},
			{StudentID: "stu-2", FullName: "Bruno", TotalTuition: 300},
		},
	}
	payments := &dashboardPaymentStub{amounts: []models.StudentAmount{
		{StudentID: "stu-1", Amount: 200},
		{StudentID: "stu-1", Amount: 300},
	}}
	grades := &dashboardGradeStub{scores: []float64{80, 90, 70}}

	svc := NewDashboardService(students, payments, grades, nil, 0, zap.NewNop())
	resp, cached, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Equal(t, 3, resp.Students.Total)
	assert.Equal(t, 2, resp.Students.Active)

	assert.Equal(t, 800.0, resp.Payments.TotalBilled)
	assert.Equal(t, 500.0, resp.Payments.TotalCollected)
	assert.Equal(t, 300.0, resp.Payments.Outstanding)
	// stu-1 fully paid, stu-2 has no payments.
	assert.Equal(t, 1, resp.Payments.PendingCount)
	assert.Equal(t, 1, resp.Payments.ByStatus.Paid)
	assert.Equal(t, 0, resp.Payments.ByStatus.Partial)
	assert.Equal(t, 1, resp.Payments.ByStatus.Unpaid)

	require.NotNil(t, resp.Grades.OverallAverage)
	assert.Equal(t, 80.0, *resp.Grades.OverallAverage)
	assert.Equal(t, 3, resp.Grades.RecordedCount)
}

func TestDashboardServiceOverviewNoGrades(t *testing.T) {
	svc := NewDashboardService(&dashboardStudentStub{}, &dashboardPaymentStub{}, &dashboardGradeStub{}, nil, 0, zap.NewNop())
	resp, _, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Nil(t, resp.Grades.OverallAverage)
	assert.Equal(t, 0, resp.Grades.RecordedCount)
	assert.Equal(t, 0, resp.Payments.PendingCount)
}

func TestDashboardServiceOverviewDegradesGrades(t *testing.T) {
	students := &dashboardStudentStub{
		total:  1,
		active: 1,
		tuition: []models.StudentTuition{
			{StudentID: "stu-1", TotalTuition: 100},
		},
	}
	payments := &dashboardPaymentStub{amounts: []models.StudentAmount{
		{StudentID: "stu-1", Amount: 100},
	}}
	grades := &dashboardGradeStub{err: errors.New("scores table unavailable")}

	svc := NewDashboardService(students, payments, grades, nil, 0, zap.NewNop())
	resp, _, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Nil(t, resp.Grades.OverallAverage)
	assert.Equal(t, 0, resp.Grades.RecordedCount)
	assert.Equal(t, 100.0, resp.Payments.TotalCollected)
}

func TestDashboardServiceOverviewRefundsStayPending(t *testing.T) {
	students := &dashboardStudentStub{
		total:  1,
		active: 1,
		tuition: []models.StudentTuition{
			{StudentID: "stu-1", TotalTuition: 400},
		},
	}
	payments := &dashboardPaymentStub{amounts: []models.StudentAmount{
		{StudentID: "stu-1", Amount: 400},
		{StudentID: "stu-1", Amount: -100},
	}}

	svc := NewDashboardService(students, payments, &dashboardGradeStub{}, nil, 0, zap.NewNop())
	resp, _, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Payments.PendingCount)
	assert.Equal(t, 1, resp.Payments.ByStatus.Partial)
}
