package service

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	"github.com/villagefreeschool/adminportal-sub001/pkg/storage"
)

type exportYearStub struct {
	year   *models.Year
	roster []models.RosterRow
}

func (s exportYearStub) FindByID(ctx context.Context, id string) (*models.Year, error) {
	if s.year == nil || s.year.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.year, nil
}

func (s exportYearStub) Roster(ctx context.Context, yearID string) ([]models.RosterRow, error) {
	return s.roster, nil
}

type exportContractStub struct {
	rows []models.TuitionRow
}

func (s exportContractStub) TuitionByYear(ctx context.Context, yearID string) ([]models.TuitionRow, error) {
	return s.rows, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)

	income := 48000.0
	years := exportYearStub{
		year: &models.Year{ID: "year-1", Name: "2026-2027"},
		roster: []models.RosterRow{
			{StudentName: "Leo Alvarez", FamilyName: "Alvarez", Decision: models.DecisionFullTime, Tuition: 6000, IsSigned: true},
			{StudentName: "Sam Brook", FamilyName: "Brook", Decision: models.DecisionPartTime, Tuition: 3000},
		},
	}
	contracts := exportContractStub{
		rows: []models.TuitionRow{
			{FamilyName: "Alvarez", GrossIncome: &income, Tuition: 6000, IsSigned: true},
			{FamilyName: "Brook", Tuition: 3000, AssistanceAmount: 500, AssistanceRequested: true},
		},
	}
	svc := NewExportService(years, contracts, store, signer, ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}, zap.NewNop())
	return svc, store
}

func exportJobFixture(exportType models.ExportType, format models.ExportFormat) *models.ExportJob {
	return &models.ExportJob{
		ID:     "job-1",
		Type:   exportType,
		Params: models.ExportJobParams{YearID: "year-1", Format: format},
	}
}

func TestExportServiceGenerateRosterCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), exportJobFixture(models.ExportTypeRoster, models.ExportFormatCSV))
	require.NoError(t, err)
	assert.NotEmpty(t, result.RelativePath)
	assert.Contains(t, result.URL, "/api/v1/export/")

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateTuitionPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), exportJobFixture(models.ExportTypeTuition, models.ExportFormatPDF))
	require.NoError(t, err)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateRosterXLSX(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), exportJobFixture(models.ExportTypeRoster, models.ExportFormatXLSX))
	require.NoError(t, err)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateUnknownYear(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	job := exportJobFixture(models.ExportTypeRoster, models.ExportFormatCSV)
	job.Params.YearID = "year-missing"
	_, err := svc.Generate(context.Background(), job)
	require.Error(t, err)
}

func TestExportServiceTokenRoundTrip(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), exportJobFixture(models.ExportTypeRoster, models.ExportFormatCSV))
	require.NoError(t, err)

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)

	file, err := svc.Open(relPath)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestExportServiceSanitizeFilename(t *testing.T) {
	assert.Equal(t, "na", sanitizeFilename(""))
	assert.Equal(t, "a_b-c", sanitizeFilename("a b/c"))
}
