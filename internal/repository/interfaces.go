package repository

import (
	"context"
	"time"

	"github.com/vytor/reviewsync/internal/models"
)

// CardRepository handles card scheduling documents
type CardRepository interface {
	Insert(ctx context.Context, card models.Card) error
	Get(ctx context.Context, id string) (*models.Card, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Card, error)
	// ApplyBatch overwrites the scheduling fields of every known card in one
	// transaction. The review counter and history only move for cards whose
	// stored fields actually change.
	ApplyBatch(ctx context.Context, items []models.BatchUpdateItem) (models.BatchUpdateResult, error)
	ApplyReview(ctx context.Context, id string, state models.SchedulingState, review models.ReviewHistory) (bool, error)
	DueCards(ctx context.Context, now time.Time, limit, offset int) ([]models.DueCard, int, error)
	Delete(ctx context.Context, id string) (bool, error)
	ReviewHistory(ctx context.Context, cardID string, limit int) ([]models.ReviewHistory, error)
}

// StatsRepository handles aggregate queries
type StatsRepository interface {
	CardStats(ctx context.Context, now time.Time) (*models.CardStats, error)
}
