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

func newContractRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func contractRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "family_id", "year_id", "tuition", "assistance_amount", "assistance_requested", "assistance_granted", "is_signed", "created_at", "updated_at"})
}

func TestContractRepositoryFindByFamilyAndYear(t *testing.T) {
	db, mock, cleanup := newContractRepoMock(t)
	defer cleanup()
	repo := NewContractRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM contracts WHERE family_id = \$1 AND year_id = \$2`).
		WithArgs("fam-1", "year-1").
		WillReturnRows(contractRows().
			AddRow("con-1", "fam-1", "year-1", 6000.0, 0.0, false, false, false, time.Now(), time.Now()))

	contract, err := repo.FindByFamilyAndYear(context.Background(), "fam-1", "year-1")
	require.NoError(t, err)
	require.Equal(t, "con-1", contract.ID)
	require.InDelta(t, 6000, contract.Tuition, 0.001)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepositoryFindByFamilyAndYearMissing(t *testing.T) {
	db, mock, cleanup := newContractRepoMock(t)
	defer cleanup()
	repo := NewContractRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM contracts WHERE family_id = \$1 AND year_id = \$2`).
		WithArgs("fam-1", "year-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByFamilyAndYear(context.Background(), "fam-1", "year-1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newContractRepoMock(t)
	defer cleanup()
	repo := NewContractRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contracts")).
		WithArgs(sqlmock.AnyArg(), "fam-1", "year-1", 0.0, 0.0, false, false, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	contract := &models.Contract{FamilyID: "fam-1", YearID: "year-1"}
	require.NoError(t, repo.Create(context.Background(), contract))
	require.NotEmpty(t, contract.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepositoryUpdateTuitionMissingRow(t *testing.T) {
	db, mock, cleanup := newContractRepoMock(t)
	defer cleanup()
	repo := NewContractRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE contracts SET tuition")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateTuition(context.Background(), &models.Contract{ID: "missing", Tuition: 5000})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepositoryReplaceDecisions(t *testing.T) {
	db, mock, cleanup := newContractRepoMock(t)
	defer cleanup()
	repo := NewContractRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM contract_decisions WHERE contract_id = $1")).
		WithArgs("con-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contract_decisions")).
		WithArgs("con-1", "stu-1", models.DecisionFullTime).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contract_decisions")).
		WithArgs("con-1", "stu-2", models.DecisionNone).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE contracts SET updated_at")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.ReplaceDecisions(context.Background(), "con-1", []models.StudentDecision{
		{StudentID: "stu-1", Decision: models.DecisionFullTime},
		{StudentID: "stu-2", Decision: models.DecisionNone},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepositoryAddSignatureUpserts(t *testing.T) {
	db, mock, cleanup := newContractRepoMock(t)
	defer cleanup()
	repo := NewContractRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contract_signatures")).
		WithArgs("con-1", "grd-1", "Maria Alvarez", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sig := &models.Signature{ContractID: "con-1", GuardianID: "grd-1", Signature: "Maria Alvarez"}
	require.NoError(t, repo.AddSignature(context.Background(), sig))
	require.False(t, sig.SignedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContractRepositoryDecisionCountsByYear(t *testing.T) {
	db, mock, cleanup := newContractRepoMock(t)
	defer cleanup()
	repo := NewContractRepository(db)

	rows := sqlmock.NewRows([]string{"decision", "total"}).
		AddRow(models.DecisionFullTime, 12).
		AddRow(models.DecisionPartTime, 3)
	mock.ExpectQuery("SELECT d.decision, COUNT\\(\\*\\) AS total").
		WithArgs("year-1").
		WillReturnRows(rows)

	counts, err := repo.DecisionCountsByYear(context.Background(), "year-1")
	require.NoError(t, err)
	require.Equal(t, 12, counts[models.DecisionFullTime])
	require.Equal(t, 3, counts[models.DecisionPartTime])
	require.NoError(t, mock.ExpectationsWereMet())
}
