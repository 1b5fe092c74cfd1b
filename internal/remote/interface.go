package remote

import (
	"context"

	"github.com/vytor/reviewsync/internal/models"
)

// Store is the remote document store holding card scheduling state.
type Store interface {
	BatchUpdate(ctx context.Context, items []models.BatchUpdateItem) (models.BatchUpdateResult, error)
	DueCards(ctx context.Context, limit, offset int) (models.DueCardsPage, error)
	GetCard(ctx context.Context, id string) (*models.Card, error)
	RegisterCard(ctx context.Context, id string) (*models.Card, error)
	Ping(ctx context.Context) error
}

var _ Store = (*Client)(nil)
