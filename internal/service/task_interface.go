package service

import (
	"context"
)

// BlobStore - хранилище целых блобов. Read возвращает repository.ErrNotFound,
// если блоба ещё нет; Write полностью заменяет содержимое.
type BlobStore interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	HealthCheck(ctx context.Context) error
}
