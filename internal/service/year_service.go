package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
)

type yearRepository interface {
	List(ctx context.Context, filter models.YearFilter) ([]models.Year, int, error)
	FindByID(ctx context.Context, id string) (*models.Year, error)
	Create(ctx context.Context, year *models.Year) error
	Update(ctx context.Context, year *models.Year) error
	Roster(ctx context.Context, yearID string) ([]models.RosterRow, error)
}

// SaveYearRequest holds the payload for creating or updating a school
// year and its sliding-scale bounds.
type SaveYearRequest struct {
	Name                     string  `json:"name" validate:"required"`
	MinimumIncome            float64 `json:"minimum_income" validate:"gte=0"`
	MaximumIncome            float64 `json:"maximum_income" validate:"gte=0"`
	MinimumTuition           float64 `json:"minimum_tuition" validate:"gte=0"`
	MaximumTuition           float64 `json:"maximum_tuition" validate:"gte=0"`
	IsAcceptingRegistrations bool    `json:"is_accepting_registrations"`
}

// YearService handles school year use-cases.
type YearService struct {
	repo      yearRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewYearService constructs the year service.
func NewYearService(repo yearRepository, validate *validator.Validate, logger *zap.Logger) *YearService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &YearService{repo: repo, validator: validate, logger: logger}
}

// List returns years and pagination metadata.
func (s *YearService) List(ctx context.Context, filter models.YearFilter) ([]models.Year, *models.Pagination, error) {
	years, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list years")
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
	return years, pagination, nil
}

// Get returns a single year.
func (s *YearService) Get(ctx context.Context, id string) (*models.Year, error) {
	year, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year")
	}
	return year, nil
}

// Create registers a new school year.
func (s *YearService) Create(ctx context.Context, req SaveYearRequest) (*models.Year, error) {
	if err := s.validatePolicy(req); err != nil {
		return nil, err
	}
	year := &models.Year{
		Name:                     req.Name,
		MinimumIncome:            req.MinimumIncome,
		MaximumIncome:            req.MaximumIncome,
		MinimumTuition:           req.MinimumTuition,
		MaximumTuition:           req.MaximumTuition,
		IsAcceptingRegistrations: req.IsAcceptingRegistrations,
	}
	if err := s.repo.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create year")
	}
	return year, nil
}

// Update modifies an existing school year.
func (s *YearService) Update(ctx context.Context, id string, req SaveYearRequest) (*models.Year, error) {
	if err := s.validatePolicy(req); err != nil {
		return nil, err
	}
	year := &models.Year{
		ID:                       id,
		Name:                     req.Name,
		MinimumIncome:            req.MinimumIncome,
		MaximumIncome:            req.MaximumIncome,
		MinimumTuition:           req.MinimumTuition,
		MaximumTuition:           req.MaximumTuition,
		IsAcceptingRegistrations: req.IsAcceptingRegistrations,
	}
	if err := s.repo.Update(ctx, year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update year")
	}
	return s.Get(ctx, id)
}

// Roster returns the attending students for a year.
func (s *YearService) Roster(ctx context.Context, yearID string) ([]models.RosterRow, error) {
	if _, err := s.Get(ctx, yearID); err != nil {
		return nil, err
	}
	rows, err := s.repo.Roster(ctx, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return rows, nil
}

// validatePolicy enforces the sliding-scale bounds: the income window
// must be non-degenerate and tuition endpoints ordered.
func (s *YearService) validatePolicy(req SaveYearRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid year payload")
	}
	if req.MaximumIncome <= req.MinimumIncome {
		return appErrors.Clone(appErrors.ErrInvalidPolicy, "maximum income must exceed minimum income")
	}
	if req.MaximumTuition < req.MinimumTuition {
		return appErrors.Clone(appErrors.ErrInvalidPolicy, "maximum tuition must not be below minimum tuition")
	}
	return nil
}
