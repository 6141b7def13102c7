package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/vtc-admin-api/internal/dto"
	"github.com/noah-isme/vtc-admin-api/internal/models"
)

const dashboardSummaryKey = "dash:summary"

type dashboardStatistics interface {
	Statistics(ctx context.Context) (dto.Statistics, error)
}

type recentStudents interface {
	Recent(ctx context.Context, limit int) ([]models.StudentRecord, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL    time.Duration
	RecentLimit int
}

// DashboardService composes the staff dashboard.
type DashboardService struct {
	stats    dashboardStatistics
	students recentStudents
	cache    *CacheService
	logger   *zap.Logger
	cfg      DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Stats    dashboardStatistics
	Students recentStudents
	Cache    *CacheService
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = 5
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		stats:    params.Stats,
		students: params.Students,
		cache:    params.Cache,
		logger:   logger,
		cfg:      cfg,
	}
}

// Summary returns the dashboard payload and whether it came from cache.
func (s *DashboardService) Summary(ctx context.Context) (*dto.DashboardResponse, bool, error) {
	gen, cacheable := s.cache.Generation(ctx, DashboardCachePattern)
	key := fmt.Sprintf("%s:v%d", dashboardSummaryKey, gen)
	var cached dto.DashboardResponse
	if cacheable && s.cache.Fetch(ctx, key, &cached) {
		return &cached, true, nil
	}

	stats, err := s.stats.Statistics(ctx)
	if err != nil {
		return nil, false, internalError(err, "failed to compute dashboard statistics")
	}
	records, err := s.students.Recent(ctx, s.cfg.RecentLimit)
	if err != nil {
		return nil, false, internalError(err, "failed to load recent students")
	}
	recent := make([]models.StudentView, len(records))
	for i, record := range records {
		recent[i] = record.View()
	}

	summary := &dto.DashboardResponse{Statistics: stats, RecentStudents: recent}
	if cacheable {
		s.cache.Store(ctx, key, summary, s.cfg.CacheTTL)
	}
	return summary, false, nil
}
