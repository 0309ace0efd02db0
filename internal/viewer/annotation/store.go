package annotation

import (
	"context"

	"drawing-viewer/internal/viewer/models"

	"github.com/patrickmn/go-cache"
)

// Store хранит маркеры по хешу содержимого. Put полностью заменяет запись.
type Store interface {
	Get(ctx context.Context, hash string) ([]models.Marker, error)
	Put(ctx context.Context, hash string, markers []models.Marker) error
}

// MemoryStore - хранилище в памяти процесса, записи не истекают.
type MemoryStore struct {
	items *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: cache.New(cache.NoExpiration, 0)}
}

func (s *MemoryStore) Get(_ context.Context, hash string) ([]models.Marker, error) {
	v, ok := s.items.Get(StorageKey(hash))
	if !ok {
		return []models.Marker{}, nil
	}
	return append([]models.Marker{}, v.([]models.Marker)...), nil
}

func (s *MemoryStore) Put(_ context.Context, hash string, markers []models.Marker) error {
	s.items.Set(StorageKey(hash), append([]models.Marker{}, markers...), cache.NoExpiration)
	return nil
}
