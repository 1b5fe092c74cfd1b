package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/reviewsync/internal/models"
)

// MockQueueStorage is a mock implementation of queue.Storage
type MockQueueStorage struct {
	mock.Mock
}

func (m *MockQueueStorage) Load(ctx context.Context) ([]models.QueueEntryRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.QueueEntryRecord), args.Error(1)
}

func (m *MockQueueStorage) Save(ctx context.Context, records []models.QueueEntryRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}
