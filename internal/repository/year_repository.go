package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
)

// YearRepository handles persistence of school year configuration.
type YearRepository struct {
	db *sqlx.DB
}

// NewYearRepository constructs the repository.
func NewYearRepository(db *sqlx.DB) *YearRepository {
	return &YearRepository{db: db}
}

const yearColumns = `id, name, minimum_income, maximum_income, minimum_tuition, maximum_tuition, is_accepting_registrations, created_at, updated_at`

// List returns years ordered by name, newest first by default.
func (r *YearRepository) List(ctx context.Context, filter models.YearFilter) ([]models.Year, int, error) {
	base := `FROM years`
	var conditions []string
	var args []interface{}

	if filter.AcceptingOnly {
		conditions = append(conditions, "is_accepting_registrations = TRUE")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY name %s LIMIT %d OFFSET %d`, yearColumns, base+clause, order, size, offset)

	var years []models.Year
	if err := r.db.SelectContext(ctx, &years, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list years: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count years: %w", err)
	}
	return years, total, nil
}

// FindByID returns a year by its ID.
func (r *YearRepository) FindByID(ctx context.Context, id string) (*models.Year, error) {
	query := fmt.Sprintf(`SELECT %s FROM years WHERE id = $1`, yearColumns)
	var year models.Year
	if err := r.db.GetContext(ctx, &year, query, id); err != nil {
		return nil, err
	}
	return &year, nil
}

// FindPrevious returns the year whose name sorts immediately before the
// given year, used to locate a family's prior contract.
func (r *YearRepository) FindPrevious(ctx context.Context, year *models.Year) (*models.Year, error) {
	query := fmt.Sprintf(`SELECT %s FROM years WHERE name < $1 ORDER BY name DESC LIMIT 1`, yearColumns)
	var prev models.Year
	if err := r.db.GetContext(ctx, &prev, query, year.Name); err != nil {
		return nil, err
	}
	return &prev, nil
}

// Create persists a new year record.
func (r *YearRepository) Create(ctx context.Context, year *models.Year) error {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	year.CreatedAt = now
	year.UpdatedAt = now
	const query = `INSERT INTO years (id, name, minimum_income, maximum_income, minimum_tuition, maximum_tuition, is_accepting_registrations, created_at, updated_at)
        VALUES (:id, :name, :minimum_income, :maximum_income, :minimum_tuition, :maximum_tuition, :is_accepting_registrations, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, year); err != nil {
		return fmt.Errorf("create year: %w", err)
	}
	return nil
}

// Update updates mutable year fields.
func (r *YearRepository) Update(ctx context.Context, year *models.Year) error {
	year.UpdatedAt = time.Now().UTC()
	const query = `UPDATE years SET name = :name, minimum_income = :minimum_income, maximum_income = :maximum_income,
        minimum_tuition = :minimum_tuition, maximum_tuition = :maximum_tuition,
        is_accepting_registrations = :is_accepting_registrations, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, year)
	if err != nil {
		return fmt.Errorf("update year: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Roster returns attending students for a year with family context.
func (r *YearRepository) Roster(ctx context.Context, yearID string) ([]models.RosterRow, error) {
	const query = `SELECT d.student_id, s.full_name AS student_name, f.id AS family_id, f.name AS family_name,
        d.decision, c.tuition, c.is_signed
        FROM contract_decisions d
        JOIN contracts c ON c.id = d.contract_id
        JOIN students s ON s.id = d.student_id
        JOIN families f ON f.id = c.family_id
        WHERE c.year_id = $1 AND d.decision <> 'NONE'
        ORDER BY f.name, s.full_name`
	var rows []models.RosterRow
	if err := r.db.SelectContext(ctx, &rows, query, yearID); err != nil {
		return nil, fmt.Errorf("year roster: %w", err)
	}
	return rows, nil
}
