package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/reviewsync/internal/models"
)

// MockCardRepository is a mock implementation of repository.CardRepository
type MockCardRepository struct {
	mock.Mock
}

func (m *MockCardRepository) Insert(ctx context.Context, card models.Card) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockCardRepository) Get(ctx context.Context, id string) (*models.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

func (m *MockCardRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Card, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Card), args.Error(1)
}

func (m *MockCardRepository) ApplyBatch(ctx context.Context, items []models.BatchUpdateItem) (models.BatchUpdateResult, error) {
	args := m.Called(ctx, items)
	return args.Get(0).(models.BatchUpdateResult), args.Error(1)
}

func (m *MockCardRepository) ApplyReview(ctx context.Context, id string, state models.SchedulingState, review models.ReviewHistory) (bool, error) {
	args := m.Called(ctx, id, state, review)
	return args.Bool(0), args.Error(1)
}

func (m *MockCardRepository) DueCards(ctx context.Context, now time.Time, limit, offset int) ([]models.DueCard, int, error) {
	args := m.Called(ctx, now, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.DueCard), args.Int(1), args.Error(2)
}

func (m *MockCardRepository) Delete(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCardRepository) ReviewHistory(ctx context.Context, cardID string, limit int) ([]models.ReviewHistory, error) {
	args := m.Called(ctx, cardID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewHistory), args.Error(1)
}
