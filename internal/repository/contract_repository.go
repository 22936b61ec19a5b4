package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
)

// ContractRepository handles persistence of tuition contracts.
type ContractRepository struct {
	db *sqlx.DB
}

// NewContractRepository constructs the repository.
func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

const contractColumns = `id, family_id, year_id, tuition, assistance_amount, assistance_requested, assistance_granted, is_signed, created_at, updated_at`

// FindByID returns a contract by its ID.
func (r *ContractRepository) FindByID(ctx context.Context, id string) (*models.Contract, error) {
	query := fmt.Sprintf(`SELECT %s FROM contracts WHERE id = $1`, contractColumns)
	var contract models.Contract
	if err := r.db.GetContext(ctx, &contract, query, id); err != nil {
		return nil, err
	}
	return &contract, nil
}

// FindByFamilyAndYear returns the single contract for a (family, year) pair.
func (r *ContractRepository) FindByFamilyAndYear(ctx context.Context, familyID, yearID string) (*models.Contract, error) {
	query := fmt.Sprintf(`SELECT %s FROM contracts WHERE family_id = $1 AND year_id = $2 LIMIT 1`, contractColumns)
	var contract models.Contract
	if err := r.db.GetContext(ctx, &contract, query, familyID, yearID); err != nil {
		return nil, err
	}
	return &contract, nil
}

// Create persists a new contract. The unique (family_id, year_id) index
// guarantees one contract per pair; concurrent first edits surface as a
// conflict the service resolves by re-reading.
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	if contract.ID == "" {
		contract.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	contract.CreatedAt = now
	contract.UpdatedAt = now
	const query = `INSERT INTO contracts (id, family_id, year_id, tuition, assistance_amount, assistance_requested, assistance_granted, is_signed, created_at, updated_at)
        VALUES (:id, :family_id, :year_id, :tuition, :assistance_amount, :assistance_requested, :assistance_granted, :is_signed, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, contract); err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

// UpdateTuition updates the tuition figures and assistance flags.
func (r *ContractRepository) UpdateTuition(ctx context.Context, contract *models.Contract) error {
	contract.UpdatedAt = time.Now().UTC()
	const query = `UPDATE contracts SET tuition = :tuition, assistance_amount = :assistance_amount,
        assistance_requested = :assistance_requested, assistance_granted = :assistance_granted,
        updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, contract)
	if err != nil {
		return fmt.Errorf("update contract tuition: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetSigned flips the signed flag.
func (r *ContractRepository) SetSigned(ctx context.Context, id string, signed bool) error {
	const query = `UPDATE contracts SET is_signed = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, signed, time.Now().UTC()); err != nil {
		return fmt.Errorf("set contract signed: %w", err)
	}
	return nil
}

// ListDecisions returns the per-student decisions on a contract.
func (r *ContractRepository) ListDecisions(ctx context.Context, contractID string) ([]models.StudentDecision, error) {
	const query = `SELECT contract_id, student_id, decision FROM contract_decisions WHERE contract_id = $1 ORDER BY student_id`
	var decisions []models.StudentDecision
	if err := r.db.SelectContext(ctx, &decisions, query, contractID); err != nil {
		return nil, fmt.Errorf("list contract decisions: %w", err)
	}
	return decisions, nil
}

// ReplaceDecisions swaps the decision set for a contract transactionally.
func (r *ContractRepository) ReplaceDecisions(ctx context.Context, contractID string, decisions []models.StudentDecision) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace decisions: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM contract_decisions WHERE contract_id = $1`, contractID); err != nil {
		return fmt.Errorf("clear contract decisions: %w", err)
	}
	const query = `INSERT INTO contract_decisions (contract_id, student_id, decision) VALUES (:contract_id, :student_id, :decision)`
	for i := range decisions {
		decisions[i].ContractID = contractID
		if _, err := tx.NamedExecContext(ctx, query, decisions[i]); err != nil {
			return fmt.Errorf("insert contract decision: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE contracts SET updated_at = $2 WHERE id = $1`, contractID, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch contract: %w", err)
	}
	return tx.Commit()
}

// ListSignatures returns the signatures recorded on a contract.
func (r *ContractRepository) ListSignatures(ctx context.Context, contractID string) ([]models.Signature, error) {
	const query = `SELECT contract_id, guardian_id, signature, signed_at FROM contract_signatures WHERE contract_id = $1 ORDER BY signed_at`
	var signatures []models.Signature
	if err := r.db.SelectContext(ctx, &signatures, query, contractID); err != nil {
		return nil, fmt.Errorf("list contract signatures: %w", err)
	}
	return signatures, nil
}

// AddSignature upserts a guardian's signature on a contract.
func (r *ContractRepository) AddSignature(ctx context.Context, sig *models.Signature) error {
	if sig.SignedAt.IsZero() {
		sig.SignedAt = time.Now().UTC()
	}
	const query = `INSERT INTO contract_signatures (contract_id, guardian_id, signature, signed_at)
        VALUES (:contract_id, :guardian_id, :signature, :signed_at)
        ON CONFLICT (contract_id, guardian_id) DO UPDATE SET signature = EXCLUDED.signature, signed_at = EXCLUDED.signed_at`
	if _, err := r.db.NamedExecContext(ctx, query, sig); err != nil {
		return fmt.Errorf("add contract signature: %w", err)
	}
	return nil
}

// ListByYear returns all contracts for a year.
func (r *ContractRepository) ListByYear(ctx context.Context, yearID string) ([]models.Contract, error) {
	query := fmt.Sprintf(`SELECT %s FROM contracts WHERE year_id = $1 ORDER BY created_at`, contractColumns)
	var contracts []models.Contract
	if err := r.db.SelectContext(ctx, &contracts, query, yearID); err != nil {
		return nil, fmt.Errorf("list contracts by year: %w", err)
	}
	return contracts, nil
}

// TuitionByYear returns the per-family tuition report rows for a year.
func (r *ContractRepository) TuitionByYear(ctx context.Context, yearID string) ([]models.TuitionRow, error) {
	const query = `SELECT f.id AS family_id, f.name AS family_name, f.gross_income,
        c.tuition, c.assistance_amount, c.assistance_requested, c.is_signed
        FROM contracts c
        JOIN families f ON f.id = c.family_id
        WHERE c.year_id = $1
        ORDER BY f.name`
	var rows []models.TuitionRow
	if err := r.db.SelectContext(ctx, &rows, query, yearID); err != nil {
		return nil, fmt.Errorf("tuition rows by year: %w", err)
	}
	return rows, nil
}

// DecisionCountsByYear aggregates decision totals for a year.
func (r *ContractRepository) DecisionCountsByYear(ctx context.Context, yearID string) (map[models.EnrollmentDecision]int, error) {
	const query = `SELECT d.decision, COUNT(*) AS total
        FROM contract_decisions d
        JOIN contracts c ON c.id = d.contract_id
        WHERE c.year_id = $1
        GROUP BY d.decision`
	rows, err := r.db.QueryxContext(ctx, query, yearID)
	if err != nil {
		return nil, fmt.Errorf("count decisions by year: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	counts := make(map[models.EnrollmentDecision]int)
	for rows.Next() {
		var decision models.EnrollmentDecision
		var total int
		if err := rows.Scan(&decision, &total); err != nil {
			return nil, fmt.Errorf("scan decision count: %w", err)
		}
		counts[decision] = total
	}
	return counts, rows.Err()
}
