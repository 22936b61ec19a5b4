package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
	"github.com/villagefreeschool/adminportal-sub001/pkg/export"
	"github.com/villagefreeschool/adminportal-sub001/pkg/storage"
)

type exportYearRepository interface {
	FindByID(ctx context.Context, id string) (*models.Year, error)
	Roster(ctx context.Context, yearID string) ([]models.RosterRow, error)
}

type exportContractRepository interface {
	TuitionByYear(ctx context.Context, yearID string) ([]models.TuitionRow, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult describes one finished export: where the file landed
// and the signed download reference handed back to the client.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService turns an export job into a rendered file on disk.
// It owns the dataset queries, the renderers and the signed download
// tokens; queueing and status tracking live in ExportJobService.
type ExportService struct {
	years     exportYearRepository
	contracts exportContractRepository
	storage   fileStorage
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	xlsx      *export.XLSXExporter
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

func NewExportService(years exportYearRepository, contracts exportContractRepository, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		years:     years,
		contracts: contracts,
		storage:   store,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		xlsx:      export.NewXLSXExporter(),
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
}

// Generate builds the dataset for a job, renders it in the requested
// format and stores the result with a signed download token.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	payload, err := s.render(job.Params.Format, dataset, title)
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          s.downloadURL(token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *ExportService) render(format models.ExportFormat, dataset export.Dataset, title string) ([]byte, error) {
	switch format {
	case models.ExportFormatCSV:
		return s.csv.Render(dataset)
	case models.ExportFormatPDF:
		return s.pdf.Render(dataset, title)
	case models.ExportFormatXLSX:
		return s.xlsx.Render(dataset, title)
	default:
		return nil, fmt.Errorf("unsupported format %s", format)
	}
}

func (s *ExportService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/export/%s", prefix, token)
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

// Cleanup removes files older than ttl, falling back to the
// configured result TTL when ttl is not positive.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	yearPart := sanitizeFilename(job.Params.YearID)
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), yearPart, timestamp, job.Params.Format)
}

// sanitizeFilename flattens a year ID into something safe to embed in
// a filename. Path separators become dashes so a crafted ID cannot
// escape the storage directory.
func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case ' ':
			return '_'
		case '/', '\\', ':':
			return '-'
		default:
			return r
		}
	}, raw)
	if len(mapped) > 100 {
		mapped = mapped[:100]
	}
	return mapped
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	year, err := s.years.FindByID(ctx, job.Params.YearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.Dataset{}, "", appErrors.Clone(appErrors.ErrNotFound, "year not found")
		}
		return export.Dataset{}, "", err
	}
	switch job.Type {
	case models.ExportTypeRoster:
		return s.rosterDataset(ctx, year)
	case models.ExportTypeTuition:
		return s.tuitionDataset(ctx, year)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) rosterDataset(ctx context.Context, year *models.Year) (export.Dataset, string, error) {
	rows, err := s.years.Roster(ctx, year.ID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataset := export.Dataset{
		Headers: []string{"Student", "Family", "Enrollment", "Tuition", "Signed"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":    row.StudentName,
			"Family":     row.FamilyName,
			"Enrollment": row.Decision.Label(),
			"Tuition":    fmt.Sprintf("%.2f", row.Tuition),
			"Signed":     yesNo(row.IsSigned),
		})
	}
	return dataset, fmt.Sprintf("Roster %s", year.Name), nil
}

func (s *ExportService) tuitionDataset(ctx context.Context, year *models.Year) (export.Dataset, string, error) {
	rows, err := s.contracts.TuitionByYear(ctx, year.ID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataset := export.Dataset{
		Headers: []string{"Family", "Gross Income", "Tuition", "Assistance", "Assistance Requested", "Signed"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		income := ""
		if row.GrossIncome != nil {
			income = fmt.Sprintf("%.2f", *row.GrossIncome)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Family":               row.FamilyName,
			"Gross Income":         income,
			"Tuition":              fmt.Sprintf("%.2f", row.Tuition),
			"Assistance":           fmt.Sprintf("%.2f", row.AssistanceAmount),
			"Assistance Requested": yesNo(row.AssistanceRequested),
			"Signed":               yesNo(row.IsSigned),
		})
	}
	return dataset, fmt.Sprintf("Tuition %s", year.Name), nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
