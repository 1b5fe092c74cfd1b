package services

import (
	"context"
	"time"

	"github.com/vytor/reviewsync/internal/errors"
	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/repository"
)

// StatsService reports aggregate scheduling figures for the whole store.
type StatsService interface {
	GetCardStats(ctx context.Context) (*models.CardStats, error)
}

type StatsOption func(*statsService)

// WithParametersVersion labels stats with the scheduler parameter set that
// produced the stored states.
func WithParametersVersion(version string) StatsOption {
	return func(s *statsService) {
		s.paramsVersion = version
	}
}

type statsService struct {
	statsRepo     repository.StatsRepository
	paramsVersion string
	now           func() time.Time
}

func NewStatsService(statsRepo repository.StatsRepository, opts ...StatsOption) StatsService {
	s := &statsService{statsRepo: statsRepo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *statsService) GetCardStats(ctx context.Context) (*models.CardStats, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_service")

	now := s.now().UTC()
	stats, err := s.statsRepo.CardStats(ctx, now)
	if err != nil {
		log.Error("failed to get card stats: %v", err)
		return nil, errors.NewInternalError(err)
	}
	stats.ParametersVersion = s.paramsVersion
	log.Debug("card stats at %s: total=%d due=%d", now.Format(time.RFC3339), stats.TotalCards, stats.CardsDue)
	return stats, nil
}
