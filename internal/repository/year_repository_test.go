package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
)

func newYearRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func yearRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "minimum_income", "maximum_income", "minimum_tuition", "maximum_tuition", "is_accepting_registrations", "created_at", "updated_at"})
}

func TestYearRepositoryListAcceptingOnly(t *testing.T) {
	db, mock, cleanup := newYearRepoMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	mock.ExpectQuery("SELECT .+ FROM years WHERE is_accepting_registrations = TRUE ORDER BY name DESC").
		WillReturnRows(yearRows().
			AddRow("year-2", "2026-2027", 20000, 100000, 2000, 10000, true, time.Now(), time.Now()))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM years WHERE is_accepting_registrations = TRUE").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	years, total, err := repo.List(context.Background(), models.YearFilter{AcceptingOnly: true})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, years, 1)
	require.True(t, years[0].IsAcceptingRegistrations)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestYearRepositoryFindPrevious(t *testing.T) {
	db, mock, cleanup := newYearRepoMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM years WHERE name < \$1 ORDER BY name DESC LIMIT 1`).
		WithArgs("2026-2027").
		WillReturnRows(yearRows().
			AddRow("year-1", "2025-2026", 20000, 100000, 2000, 10000, false, time.Now(), time.Now()))

	prev, err := repo.FindPrevious(context.Background(), &models.Year{ID: "year-2", Name: "2026-2027"})
	require.NoError(t, err)
	require.Equal(t, "2025-2026", prev.Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestYearRepositoryFindPreviousNone(t *testing.T) {
	db, mock, cleanup := newYearRepoMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM years WHERE name < \$1`).
		WithArgs("2020-2021").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindPrevious(context.Background(), &models.Year{Name: "2020-2021"})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestYearRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newYearRepoMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO years")).
		WithArgs(sqlmock.AnyArg(), "2026-2027", 20000.0, 100000.0, 2000.0, 10000.0, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	year := &models.Year{
		Name:                     "2026-2027",
		MinimumIncome:            20000,
		MaximumIncome:            100000,
		MinimumTuition:           2000,
		MaximumTuition:           10000,
		IsAcceptingRegistrations: true,
	}
	require.NoError(t, repo.Create(context.Background(), year))
	require.NotEmpty(t, year.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestYearRepositoryRoster(t *testing.T) {
	db, mock, cleanup := newYearRepoMock(t)
	defer cleanup()
	repo := NewYearRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_name", "family_id", "family_name", "decision", "tuition", "is_signed"}).
		AddRow("stu-1", "Leo Alvarez", "fam-1", "Alvarez", models.DecisionFullTime, 6000.0, true).
		AddRow("stu-2", "Mia Alvarez", "fam-1", "Alvarez", models.DecisionPartTime, 6000.0, true)
	mock.ExpectQuery("SELECT d.student_id, s.full_name AS student_name").
		WithArgs("year-1").
		WillReturnRows(rows)

	roster, err := repo.Roster(context.Background(), "year-1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	require.Equal(t, models.DecisionPartTime, roster[1].Decision)
	require.NoError(t, mock.ExpectationsWereMet())
}
