package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/unipass-api/internal/models"
	appErrors "github.com/noah-isme/unipass-api/pkg/errors"
)

type passSummaryRepository interface {
	Summary(ctx context.Context, universityID string) (*models.PassSummary, error)
}

type summaryCache interface {
	Remember(ctx context.Context, key string, ttl time.Duration, dest interface{}, load func(context.Context) (interface{}, error)) (bool, error)
}

// DashboardService composes the admin dashboard summary. Results share the
// pass query cache namespace so pass writes invalidate them too.
type DashboardService struct {
	repo   passSummaryRepository
	cache  summaryCache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewDashboardService constructs a DashboardService. cache may be nil.
func NewDashboardService(repo passSummaryRepository, cache summaryCache, ttl time.Duration, logger *zap.Logger) *DashboardService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{repo: repo, cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// Summary returns the university summary and whether it came from cache.
func (s *DashboardService) Summary(ctx context.Context, universityID string) (*models.PassSummary, bool, error) {
	if universityID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "university is required")
	}
	key := fmt.Sprintf("passes:query:%s:summary", universityID)
	load := func(ctx context.Context) (interface{}, error) {
		summary, err := s.repo.Summary(ctx, universityID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard summary")
		}
		summary.GeneratedAt = s.now().UTC()
		return summary, nil
	}
	if s.cache == nil {
		summary, err := load(ctx)
		if err != nil {
			return nil, false, err
		}
		return summary.(*models.PassSummary), false, nil
	}

	var summary models.PassSummary
	hit, err := s.cache.Remember(ctx, key, s.ttl, &summary, load)
	if err != nil {
		s.logger.Warn("dashboard summary failed", zap.String("university_id", universityID), zap.Error(err))
		return nil, false, err
	}
	return &summary, hit, nil
}
