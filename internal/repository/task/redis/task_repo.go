package redis

import (
	"context"
	"errors"
	"fmt"
	"taskboard/internal/logger"
	repo "taskboard/internal/repository"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultKeyPrefix = "taskboard:"

// Storage хранит блобы строковыми значениями redis под ключами <prefix><key>
type Storage struct {
	client *goredis.Client
	prefix string
}

func New(ctx context.Context, url, prefix string, connectTimeout time.Duration) (*Storage, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		logger.Error("Repository: Неверный URL redis", err)
		return nil, fmt.Errorf("разбор URL redis: %w", err)
	}

	client := goredis.NewClient(opts)
	s := NewWithClient(client, prefix)

	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectTimeout

	err = backoff.Retry(func() error {
		err := client.Ping(ctx).Err()
		if err != nil {
			logger.Warn("Repository: Redis недоступен, повтор", zap.Error(err))
		}
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		_ = client.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное подключение к Redis", zap.String("addr", opts.Addr))
	return s, nil
}

func NewWithClient(client *goredis.Client, prefix string) *Storage {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Storage{client: client, prefix: prefix}
}

func (s *Storage) key(key string) string {
	return s.prefix + key
}

func (s *Storage) Close() {
	if err := s.client.Close(); err != nil {
		logger.Warn("Repository: Ошибка закрытия клиента redis", zap.Error(err))
	}
	logger.Info("Repository: Соединение с Redis закрыто")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Read(ctx context.Context, key string) ([]byte, error) {
	if err := repo.ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось прочитать блоб", err, zap.String("key", key))
		return nil, fmt.Errorf("чтение блоба %s: %w", key, err)
	}
	return data, nil
}

func (s *Storage) Write(ctx context.Context, key string, data []byte) error {
	if err := repo.ValidateKey(key); err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		logger.Error("Repository: Не удалось записать блоб", err, zap.String("key", key))
		return fmt.Errorf("запись блоба %s: %w", key, err)
	}
	return nil
}
