package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/vtc-admin-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// CacheService wraps a cache repository with metrics. Cache failures are
// logged and degrade to misses; they never fail a request.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Fetch loads key into dest and reports whether it was a hit.
func (s *CacheService) Fetch(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	hit := err == nil
	s.metrics.RecordCacheOperation(hit, time.Since(start))
	if err != nil && !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	}
	return hit
}

// Store writes value under key. A non-positive ttl uses the default.
func (s *CacheService) Store(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if !s.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Generation returns the invalidation counter for pattern. Readers embed it
// in the keys they fill so a value computed before an invalidation is stored
// under a generation nobody reads anymore. ok is false when the counter cannot
// be read; the caller must then bypass the cache.
func (s *CacheService) Generation(ctx context.Context, pattern string) (int64, bool) {
	if !s.Enabled() {
		return 0, false
	}
	var gen int64
	if err := s.repo.Get(ctx, generationKey(pattern), &gen); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return 0, true
		}
		s.logger.Warn("cache generation read failed", zap.String("pattern", pattern), zap.Error(err))
		return 0, false
	}
	return gen, true
}

// Invalidate bumps the generation for pattern and removes cached values
// matching it.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) {
	if !s.Enabled() {
		return
	}
	if _, err := s.repo.Incr(ctx, generationKey(pattern)); err != nil {
		s.logger.Warn("cache generation bump failed", zap.String("pattern", pattern), zap.Error(err))
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
	}
}

func generationKey(pattern string) string {
	return "gen:" + pattern
}
