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

// FamilyRepository handles persistence of families, guardians and students.
type FamilyRepository struct {
	db *sqlx.DB
}

// NewFamilyRepository constructs the repository.
func NewFamilyRepository(db *sqlx.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// List returns families filtered by the provided criteria.
func (r *FamilyRepository) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error) {
	base := `FROM families`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "name",
		"created_at": "created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT id, name, gross_income, notes, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		base+clause, orderBy, order, size, offset)

	var families []models.Family
	if err := r.db.SelectContext(ctx, &families, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list families: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count families: %w", err)
	}
	return families, total, nil
}

// FindByID returns a family by its ID.
func (r *FamilyRepository) FindByID(ctx context.Context, id string) (*models.Family, error) {
	const query = `SELECT id, name, gross_income, notes, created_at, updated_at FROM families WHERE id = $1`
	var family models.Family
	if err := r.db.GetContext(ctx, &family, query, id); err != nil {
		return nil, err
	}
	return &family, nil
}

// FindDetailByID returns a family with its guardians and students.
func (r *FamilyRepository) FindDetailByID(ctx context.Context, id string) (*models.FamilyDetail, error) {
	family, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	guardians, err := r.ListGuardians(ctx, id)
	if err != nil {
		return nil, err
	}
	students, err := r.ListStudents(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.FamilyDetail{Family: *family, Guardians: guardians, Students: students}, nil
}

// ListGuardians returns the guardians of a family.
func (r *FamilyRepository) ListGuardians(ctx context.Context, familyID string) ([]models.Guardian, error) {
	const query = `SELECT id, family_id, full_name, email, phone FROM guardians WHERE family_id = $1 ORDER BY full_name`
	var guardians []models.Guardian
	if err := r.db.SelectContext(ctx, &guardians, query, familyID); err != nil {
		return nil, fmt.Errorf("list guardians: %w", err)
	}
	return guardians, nil
}

// ListStudents returns the students of a family.
func (r *FamilyRepository) ListStudents(ctx context.Context, familyID string) ([]models.Student, error) {
	const query = `SELECT id, family_id, full_name, birth_date FROM students WHERE family_id = $1 ORDER BY full_name`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, familyID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindGuardianByID returns a single guardian.
func (r *FamilyRepository) FindGuardianByID(ctx context.Context, id string) (*models.Guardian, error) {
	const query = `SELECT id, family_id, full_name, email, phone FROM guardians WHERE id = $1`
	var guardian models.Guardian
	if err := r.db.GetContext(ctx, &guardian, query, id); err != nil {
		return nil, err
	}
	return &guardian, nil
}

// Create persists a new family record.
func (r *FamilyRepository) Create(ctx context.Context, family *models.Family) error {
	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	family.CreatedAt = now
	family.UpdatedAt = now
	const query = `INSERT INTO families (id, name, gross_income, notes, created_at, updated_at)
        VALUES (:id, :name, :gross_income, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, family); err != nil {
		return fmt.Errorf("create family: %w", err)
	}
	return nil
}

// Update updates mutable family fields.
func (r *FamilyRepository) Update(ctx context.Context, family *models.Family) error {
	family.UpdatedAt = time.Now().UTC()
	const query = `UPDATE families SET name = :name, gross_income = :gross_income, notes = :notes, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, family)
	if err != nil {
		return fmt.Errorf("update family: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a family and its dependents.
func (r *FamilyRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete family: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, query := range []string{
		`DELETE FROM guardians WHERE family_id = $1`,
		`DELETE FROM students WHERE family_id = $1`,
		`DELETE FROM families WHERE id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("delete family: %w", err)
		}
	}
	return tx.Commit()
}

// ReplaceGuardians swaps the family's guardian set inside a transaction.
func (r *FamilyRepository) ReplaceGuardians(ctx context.Context, familyID string, guardians []models.Guardian) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace guardians: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM guardians WHERE family_id = $1`, familyID); err != nil {
		return fmt.Errorf("clear guardians: %w", err)
	}
	const query = `INSERT INTO guardians (id, family_id, full_name, email, phone) VALUES (:id, :family_id, :full_name, :email, :phone)`
	for i := range guardians {
		if guardians[i].ID == "" {
			guardians[i].ID = uuid.NewString()
		}
		guardians[i].FamilyID = familyID
		if _, err := tx.NamedExecContext(ctx, query, guardians[i]); err != nil {
			return fmt.Errorf("insert guardian: %w", err)
		}
	}
	return tx.Commit()
}

// ReplaceStudents swaps the family's student set inside a transaction.
func (r *FamilyRepository) ReplaceStudents(ctx context.Context, familyID string, students []models.Student) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace students: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE family_id = $1`, familyID); err != nil {
		return fmt.Errorf("clear students: %w", err)
	}
	const query = `INSERT INTO students (id, family_id, full_name, birth_date) VALUES (:id, :family_id, :full_name, :birth_date)`
	for i := range students {
		if students[i].ID == "" {
			students[i].ID = uuid.NewString()
		}
		students[i].FamilyID = familyID
		if _, err := tx.NamedExecContext(ctx, query, students[i]); err != nil {
			return fmt.Errorf("insert student: %w", err)
		}
	}
	return tx.Commit()
}
