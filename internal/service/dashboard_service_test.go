package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-records-api/internal/models"
	appErrors "github.com/noah-isme/school-records-api/pkg/errors"
)

type dashboardRepoStub struct {
	stats *models.DashboardStats
	calls int
}

func (s *dashboardRepoStub) Stats(ctx context.Context) (*models.DashboardStats, error) {
	s.calls++
	return s.stats, nil
}

type statsCacheStub struct {
	stored          map[string]*models.DashboardStats
	setCalls        int
	deletedPatterns []string
}

func (s *statsCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	if cached, ok := s.stored[key]; ok {
		*dest.(*models.DashboardStats) = *cached
		return nil
	}
	return appErrors.ErrCacheMiss
}

func (s *statsCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	s.setCalls++
	if s.stored == nil {
		s.stored = map[string]*models.DashboardStats{}
	}
	s.stored[key] = value.(*models.DashboardStats)
	return nil
}

func (s *statsCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deletedPatterns = append(s.deletedPatterns, pattern)
	s.stored = nil
	return nil
}

func TestDashboardStatsCacheMissThenHit(t *testing.T) {
	repo := &dashboardRepoStub{stats: &models.DashboardStats{ActiveStudents: 120, ActiveCourses: 8}}
	cache := &statsCacheStub{}
	svc := NewDashboardService(repo, cache, time.Minute, zap.NewNop())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, stats.ActiveStudents)
	assert.Equal(t, 1, repo.calls)
	assert.Equal(t, 1, cache.setCalls)

	// Second read is served from the cache.
	stats, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, stats.ActiveStudents)
	assert.Equal(t, 1, repo.calls)
}

func TestDashboardInvalidateDropsCachedStats(t *testing.T) {
	repo := &dashboardRepoStub{stats: &models.DashboardStats{ActiveStudents: 5}}
	cache := &statsCacheStub{}
	svc := NewDashboardService(repo, cache, time.Minute, zap.NewNop())

	_, err := svc.Stats(context.Background())
	require.NoError(t, err)

	svc.Invalidate(context.Background())
	assert.Equal(t, []string{"dashboard:*"}, cache.deletedPatterns)

	_, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "invalidation must force a database reload")
}
