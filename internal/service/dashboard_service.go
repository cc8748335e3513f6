package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-records-api/internal/models"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
)

const dashboardCacheKey = "dashboard:stats"

type dashboardRepository interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// DashboardService serves headline counts, cached in Redis so the landing
// page does not hammer the database.
type DashboardService struct {
	repo   dashboardRepository
	cache  statsCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, cache statsCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// Stats returns dashboard counts, preferring the cache.
func (s *DashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var cached models.DashboardStats
	if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard stats")
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, stats, s.ttl); err != nil {
		s.logger.Warn("dashboard cache write failed", zap.Error(err))
	}
	return stats, nil
}

// Invalidate drops cached stats after a write that changes the counts.
func (s *DashboardService) Invalidate(ctx context.Context) {
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}
