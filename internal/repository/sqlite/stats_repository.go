package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/vytor/reviewsync/internal/logger"
	"github.com/vytor/reviewsync/internal/models"
	"github.com/vytor/reviewsync/internal/repository"
)

type statsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a new StatsRepository implementation
func NewStatsRepository(db *sql.DB) repository.StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CardStats(ctx context.Context, now time.Time) (*models.CardStats, error) {
	log := logger.FromContext(ctx).WithPrefix("stats_repo")
	log.Debug("computing card stats")

	stats := &models.CardStats{ByState: map[string]int{}}
	var avgStability, avgDifficulty sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(review_count), 0), AVG(COALESCE(stability, 0)), AVG(COALESCE(difficulty, ?))
FROM cards
`, models.DefaultDifficulty).Scan(&stats.TotalCards, &stats.TotalReviews, &avgStability, &avgDifficulty)
	if err != nil {
		log.Error("failed to query card totals: %v", err)
		return nil, err
	}
	stats.AvgStability = avgStability.Float64
	stats.AvgDifficulty = avgDifficulty.Float64

	dueSQL, dueArgs, err := sqlBuilder.Select("COUNT(*)").From("cards").Where(duePredicate(now)).ToSql()
	if err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, dueSQL, dueArgs...).Scan(&stats.CardsDue); err != nil {
		log.Error("failed to count due cards: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `SELECT COALESCE(state, ''), COUNT(*) FROM cards GROUP BY COALESCE(state, '')`)
	if err != nil {
		log.Error("failed to count cards by state: %v", err)
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, err
		}
		st, err := models.ParseState(raw)
		if err != nil {
			st = models.StateNew
		}
		stats.ByState[st.String()] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	log.Debug("stats: total=%d, due=%d, reviews=%d", stats.TotalCards, stats.CardsDue, stats.TotalReviews)
	return stats, nil
}
