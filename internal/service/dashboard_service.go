package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/villagefreeschool/adminportal-sub001/internal/models"
	appErrors "github.com/villagefreeschool/adminportal-sub001/pkg/errors"
)

type dashboardContractRepository interface {
	ListByYear(ctx context.Context, yearID string) ([]models.Contract, error)
	DecisionCountsByYear(ctx context.Context, yearID string) (map[models.EnrollmentDecision]int, error)
}

type dashboardYearRepository interface {
	FindByID(ctx context.Context, id string) (*models.Year, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the per-year enrollment summary.
type DashboardService struct {
	contracts dashboardContractRepository
	years     dashboardYearRepository
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(contracts dashboardContractRepository, years dashboardYearRepository, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		contracts: contracts,
		years:     years,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Summary returns the year overview and indicates cache utilisation.
func (s *DashboardService) Summary(ctx context.Context, yearID string) (*models.DashboardSummary, bool, error) {
	if yearID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "yearId is required")
	}
	cacheKey := fmt.Sprintf("dash:year:%s", yearID)
	if s.cache != nil {
		var cached models.DashboardSummary
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compose(ctx, yearID)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, summary, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return summary, false, nil
}

// Invalidate drops the cached summary after a contract or roster edit.
func (s *DashboardService) Invalidate(ctx context.Context, yearID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dash:year:%s", yearID)); err != nil {
		s.logger.Warn("dashboard cache invalidate failed", zap.String("yearId", yearID), zap.Error(err))
	}
}

func (s *DashboardService) compose(ctx context.Context, yearID string) (*models.DashboardSummary, error) {
	year, err := s.years.FindByID(ctx, yearID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load year")
	}

	contracts, err := s.contracts.ListByYear(ctx, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contracts")
	}
	counts, err := s.contracts.DecisionCountsByYear(ctx, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count decisions")
	}

	summary := &models.DashboardSummary{
		YearID:             year.ID,
		YearName:           year.Name,
		FamiliesRegistered: len(contracts),
		StudentsFullTime:   counts[models.DecisionFullTime],
		StudentsPartTime:   counts[models.DecisionPartTime],
		GeneratedAt:        s.now().UTC(),
	}
	for _, c := range contracts {
		if c.IsSigned {
			summary.ContractsSigned++
		} else {
			summary.ContractsUnsigned++
		}
		summary.ProjectedIncome += c.Tuition
		if c.AssistanceRequested {
			summary.AssistanceRequested++
		}
		if c.AssistanceGranted {
			summary.AssistanceGranted += c.AssistanceAmount
		}
	}
	return summary, nil
}
