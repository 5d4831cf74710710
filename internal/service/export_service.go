package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/academia-ops/academia-api/internal/models"
	"github.com/academia-ops/academia-api/internal/tuition"
	"github.com/academia-ops/academia-api/pkg/export"
	"github.com/academia-ops/academia-api/pkg/storage"
)

type exportPaymentRepository interface {
	ListForExport(ctx context.Context, studentID string) ([]models.PaymentDetail, error)
	AllStudentAmounts(ctx context.Context) ([]models.StudentAmount, error)
	AmountsByStudent(ctx context.Context, studentID string) ([]float64, error)
}

type exportGradeRepository interface {
	ListForExport(ctx context.Context, studentID string) ([]models.GradeDetail, error)
}

type exportStudentRepository interface {
	TuitionByStudent(ctx context.Context) ([]models.StudentTuition, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset, sheet string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds datasets for export jobs and persists rendered files.
type ExportService struct {
	payments exportPaymentRepository
	grades   exportGradeRepository
	students exportStudentRepository
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	xlsx     xlsxRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(payments exportPaymentRepository, grades exportGradeRepository, students exportStudentRepository, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		payments: payments,
		grades:   grades,
		students: students,
		storage:  store,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		xlsx:     export.NewXLSXExporter(),
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate builds the dataset for the job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	case models.ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := "all"
	if job.Params.StudentID != nil && *job.Params.StudentID != "" {
		scope = sanitizeFilename(*job.Params.StudentID)
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), scope, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypePayments:
		return s.buildPaymentDataset(ctx, job.Params)
	case models.ExportTypeGrades:
		return s.buildGradeDataset(ctx, job.Params)
	case models.ExportTypeSummary:
		return s.buildSummaryDataset(ctx)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) buildPaymentDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	rows, err := s.payments.ListForExport(ctx, deref(params.StudentID))
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Payment ID": row.ID,
			"Student":    row.StudentName,
			"Amount":     fmt.Sprintf("%.2f", row.Amount),
			"Method":     row.Method,
			"Date":       row.PaymentDate.UTC().Format("2006-01-02"),
			"Note":       row.Note,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Payment ID", "Student", "Amount", "Method", "Date", "Note"},
		Rows:    dataRows,
	}
	return dataset, "Payments", nil
}

func (s *ExportService) buildGradeDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	rows, err := s.grades.ListForExport(ctx, deref(params.StudentID))
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Grade ID":    row.ID,
			"Student ID":  row.StudentID,
			"Subject":     fmt.Sprintf("%s (%s)", row.SubjectName, row.SubjectCode),
			"Score":       fmt.Sprintf("%.1f", row.Score),
			"Recorded At": row.RecordedAt.UTC().Format("2006-01-02"),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Grade ID", "Student ID", "Subject", "Score", "Recorded At"},
		Rows:    dataRows,
	}
	return dataset, "Grades", nil
}

// buildSummaryDataset emits one row per active student with their derived
// account figures.
func (s *ExportService) buildSummaryDataset(ctx context.Context) (export.Dataset, string, error) {
	tuitionRows, err := s.students.TuitionByStudent(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	amountRows, err := s.payments.AllStudentAmounts(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}

	paymentsByStudent := make(map[string][]float64)
	for _, row := range amountRows {
		paymentsByStudent[row.StudentID] = append(paymentsByStudent[row.StudentID], row.Amount)
	}

	dataRows := make([]map[string]string, 0, len(tuitionRows))
	for _, row := range tuitionRows {
		summary := tuition.ComputeSummary(row.TotalTuition, paymentsByStudent[row.StudentID])
		dataRows = append(dataRows, map[string]string{
			"Student ID": row.StudentID,
			"Student":    row.FullName,
			"Tuition":    fmt.Sprintf("%.2f", row.TotalTuition),
			"Paid":       fmt.Sprintf("%.2f", summary.TotalPaid),
			"Balance":    fmt.Sprintf("%.2f", summary.Balance),
			"Status":     string(summary.Status),
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Student ID", "Student", "Tuition", "Paid", "Balance", "Status"},
		Rows:    dataRows,
	}
	return dataset, "Tuition Summary", nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
