package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/academia-ops/academia-api/internal/dto"
	"github.com/academia-ops/academia-api/internal/models"
	"github.com/academia-ops/academia-api/internal/tuition"
	appErrors "github.com/academia-ops/academia-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:overview"

type dashboardStudentRepository interface {
	Counts(ctx context.Context) (total int, active int, err error)
	TuitionByStudent(ctx context.Context) ([]models.StudentTuition, error)
}

type dashboardPaymentRepository interface {
	AllStudentAmounts(ctx context.Context) ([]models.StudentAmount, error)
}

type dashboardGradeRepository interface {
	AllScores(ctx context.Context) ([]float64, error)
}

// DashboardService aggregates administrative totals. Payment figures are
// derived from stored payments at read time; nothing on the dashboard is
// a persisted counter.
type DashboardService struct {
	students dashboardStudentRepository
	payments dashboardPaymentRepository
	grades   dashboardGradeRepository
	cache    *CacheService
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(students dashboardStudentRepository, payments dashboardPaymentRepository, grades dashboardGradeRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{students: students, payments: payments, grades: grades, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// Overview returns the dashboard payload. The second return value
// reports whether the payload was served from cache.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardResponse, bool, error) {
	if s.cache != nil {
		var cached dto.DashboardResponse
		if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	resp, err := s.build(ctx)
	if err != nil {
		return nil, false, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, resp, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard payload", zap.Error(err))
		}
	}

	return resp, false, nil
}

// Invalidate drops the cached dashboard payload after a write.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, dashboardCacheKey); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *DashboardService) build(ctx context.Context) (*dto.DashboardResponse, error) {
	total, active, err := s.students.Counts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}

	tuitionRows, err := s.students.TuitionByStudent(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tuition")
	}

	amountRows, err := s.payments.AllStudentAmounts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payments")
	}

	// Grade figures are secondary on this view; a failed score query
	// degrades the grades section instead of blanking payment totals.
	scores, err := s.grades.AllScores(ctx)
	if err != nil {
		s.logger.Warn("failed to load scores for dashboard", zap.Error(err))
		scores = nil
	}

	tuitionByStudent := make(map[string]float64, len(tuitionRows))
	var totalBilled float64
	for _, row := range tuitionRows {
		tuitionByStudent[row.StudentID] = row.TotalTuition
		totalBilled += row.TotalTuition
	}

	paymentsByStudent := make(map[string][]float64)
	var totalCollected float64
	for _, row := range amountRows {
		paymentsByStudent[row.StudentID] = append(paymentsByStudent[row.StudentID], row.Amount)
		totalCollected += row.Amount
	}

	var breakdown dto.StatusBreakdown
	for studentID, totalTuition := range tuitionByStudent {
		summary := tuition.ComputeSummary(totalTuition, paymentsByStudent[studentID])
		switch summary.Status {
		case tuition.StatusPaid:
			breakdown.Paid++
		case tuition.StatusPartial:
			breakdown.Partial++
		case tuition.StatusUnpaid:
			breakdown.Unpaid++
		}
	}

	return &dto.DashboardResponse{
		Students: dto.StudentsSection{
			Total:  total,
			Active: active,
		},
		Payments: dto.PaymentsSection{
			TotalBilled:    totalBilled,
			TotalCollected: totalCollected,
			Outstanding:    totalBilled - totalCollected,
			PendingCount:   tuition.CountPending(tuitionByStudent, paymentsByStudent),
			ByStatus:       breakdown,
		},
		Grades: dto.GradesSection{
			OverallAverage: tuition.AverageGrade(scores),
			RecordedCount:  len(scores),
		},
	}, nil
}
