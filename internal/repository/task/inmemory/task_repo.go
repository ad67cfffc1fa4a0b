package inmemory

import (
	"context"
	"sync"
	"taskboard/internal/logger"
	repo "taskboard/internal/repository"
)

// BlobStorage хранит блобы в памяти процесса. Данные теряются при рестарте
type BlobStorage struct {
	storage map[string][]byte
	mtx     *sync.RWMutex
}

func NewBlobStorage() *BlobStorage {
	return &BlobStorage{
		storage: make(map[string][]byte),
		mtx:     &sync.RWMutex{},
	}
}

func (s *BlobStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *BlobStorage) Read(ctx context.Context, key string) ([]byte, error) {
	if err := repo.ValidateKey(key); err != nil {
		return nil, err
	}

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	data, ok := s.storage[key]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *BlobStorage) Write(ctx context.Context, key string, data []byte) error {
	if err := repo.ValidateKey(key); err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.storage[key] = append([]byte(nil), data...)
	return nil
}

// Len возвращает число сохранённых блобов
func (s *BlobStorage) Len() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return len(s.storage)
}
