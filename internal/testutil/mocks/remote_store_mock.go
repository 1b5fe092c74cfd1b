package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/reviewsync/internal/models"
)

// MockRemoteStore is a mock implementation of remote.Store
type MockRemoteStore struct {
	mock.Mock
}

func (m *MockRemoteStore) BatchUpdate(ctx context.Context, items []models.BatchUpdateItem) (models.BatchUpdateResult, error) {
	args := m.Called(ctx, items)
	return args.Get(0).(models.BatchUpdateResult), args.Error(1)
}

func (m *MockRemoteStore) DueCards(ctx context.Context, limit, offset int) (models.DueCardsPage, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).(models.DueCardsPage), args.Error(1)
}

func (m *MockRemoteStore) GetCard(ctx context.Context, id string) (*models.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

func (m *MockRemoteStore) RegisterCard(ctx context.Context, id string) (*models.Card, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Card), args.Error(1)
}

func (m *MockRemoteStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
