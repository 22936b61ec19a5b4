package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
)

type familyRepository interface {
	List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error)
	FindByID(ctx context.Context, id string) (*models.Family, error)
	FindDetailByID(ctx context.Context, id string) (*models.FamilyDetail, error)
	Create(ctx context.Context, family *models.Family) error
	Update(ctx context.Context, family *models.Family) error
	Delete(ctx context.Context, id string) error
	ReplaceGuardians(ctx context.Context, familyID string, guardians []models.Guardian) error
	ReplaceStudents(ctx context.Context, familyID string, students []models.Student) error
}

// GuardianInput is one guardian row in a family payload.
type GuardianInput struct {
	ID       string `json:"id"`
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
}

// StudentInput is one student row in a family payload.
type StudentInput struct {
	ID        string     `json:"id"`
	FullName  string     `json:"full_name" validate:"required"`
	BirthDate *time.Time `json:"birth_date"`
}

// SaveFamilyRequest holds the payload for creating or updating a family
// together with its guardian and student rosters.
type SaveFamilyRequest struct {
	Name        string          `json:"name" validate:"required"`
	GrossIncome *float64        `json:"gross_income" validate:"omitempty,gte=0"`
	Notes       string          `json:"notes"`
	Guardians   []GuardianInput `json:"guardians" validate:"dive"`
	Students    []StudentInput  `json:"students" validate:"dive"`
}

// FamilyService handles family use-cases.
type FamilyService struct {
	repo      familyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFamilyService constructs the family service.
func NewFamilyService(repo familyRepository, validate *validator.Validate, logger *zap.Logger) *FamilyService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FamilyService{repo: repo, validator: validate, logger: logger}
}

// List returns families and pagination metadata.
func (s *FamilyService) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, *models.Pagination, error) {
	families, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list families")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return families, pagination, nil
}

// Get returns a family with its guardians and students.
func (s *FamilyService) Get(ctx context.Context, id string) (*models.FamilyDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family")
	}
	return detail, nil
}

// Create registers a new family with its guardians and students.
func (s *FamilyService) Create(ctx context.Context, req SaveFamilyRequest) (*models.FamilyDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid family payload")
	}

	family := &models.Family{
		Name:        req.Name,
		GrossIncome: req.GrossIncome,
		Notes:       req.Notes,
	}
	if err := s.repo.Create(ctx, family); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create family")
	}

	if err := s.saveMembers(ctx, family.ID, req); err != nil {
		return nil, err
	}
	return s.Get(ctx, family.ID)
}

// Update modifies a family and replaces its guardian and student sets.
func (s *FamilyService) Update(ctx context.Context, id string, req SaveFamilyRequest) (*models.FamilyDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid family payload")
	}

	family := &models.Family{
		ID:          id,
		Name:        req.Name,
		GrossIncome: req.GrossIncome,
		Notes:       req.Notes,
	}
	if err := s.repo.Update(ctx, family); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update family")
	}

	if err := s.saveMembers(ctx, id, req); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a family permanently, along with its guardians and
// students.
func (s *FamilyService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete family")
	}
	return nil
}

func (s *FamilyService) saveMembers(ctx context.Context, familyID string, req SaveFamilyRequest) error {
	guardians := make([]models.Guardian, 0, len(req.Guardians))
	for _, g := range req.Guardians {
		guardians = append(guardians, models.Guardian{
			ID:       g.ID,
			FamilyID: familyID,
			FullName: g.FullName,
			Email:    g.Email,
			Phone:    g.Phone,
		})
	}
	if err := s.repo.ReplaceGuardians(ctx, familyID, guardians); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save guardians")
	}

	students := make([]models.Student, 0, len(req.Students))
	for _, st := range req.Students {
		students = append(students, models.Student{
			ID:        st.ID,
			FamilyID:  familyID,
			FullName:  st.FullName,
			BirthDate: st.BirthDate,
		})
	}
	if err := s.repo.ReplaceStudents(ctx, familyID, students); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save students")
	}
	return nil
}
