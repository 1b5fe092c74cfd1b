package queue

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/vytor/reviewsync/internal/models"
)

// MemoryStorage keeps the durable copy as encoded JSON in memory. It goes
// through the same encoding as the on-disk store.
type MemoryStorage struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load(ctx context.Context) ([]models.QueueEntryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.data) == 0 {
		return nil, nil
	}
	var records []models.QueueEntryRecord
	if err := json.Unmarshal(m.data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (m *MemoryStorage) Save(ctx context.Context, records []models.QueueEntryRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	m.saves++
	return nil
}

// Raw returns the last saved document.
func (m *MemoryStorage) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// SetRaw replaces the saved document, e.g. with one written by an older
// client.
func (m *MemoryStorage) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

func (m *MemoryStorage) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
