package postgres

import (
	"context"
	"errors"
	"fmt"
	"taskboard/internal/logger"
	repo "taskboard/internal/repository"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Options struct {
	MaxConnections int
	MinConnections int
	IdleTimeout    time.Duration
	// ConnectTimeout ограничивает суммарное время попыток первого ping
	ConnectTimeout time.Duration
}

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string, opts Options) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5
	if opts.MaxConnections > 0 {
		config.MaxConns = int32(opts.MaxConnections)
	}
	if opts.MinConnections > 0 {
		config.MinConns = int32(opts.MinConnections)
	}
	if opts.IdleTimeout > 0 {
		config.MaxConnIdleTime = opts.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	if err := pingWithBackoff(ctx, pool, opts.ConnectTimeout); err != nil {
		pool.Close()
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func pingWithBackoff(ctx context.Context, pool *pgxpool.Pool, limit time.Duration) error {
	if limit <= 0 {
		limit = 30 * time.Second
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = limit

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := pool.Ping(ctx)
		if err != nil {
			logger.Warn("Repository: PostgreSQL недоступен, повтор", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}, backoff.WithContext(b, ctx))
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func (s *Storage) Read(ctx context.Context, key string) ([]byte, error) {
	if err := repo.ValidateKey(key); err != nil {
		return nil, err
	}
	start := time.Now()

	query := `SELECT body
				FROM task_blobs
				WHERE key = $1`

	var body []byte
	err := s.pool.QueryRow(ctx, query, key).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось прочитать блоб", err, zap.String("key", key), zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("чтение блоба %s: %w", key, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return body, nil
}

func (s *Storage) Write(ctx context.Context, key string, data []byte) error {
	if err := repo.ValidateKey(key); err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	start := time.Now()

	query := `INSERT INTO task_blobs (key, body, updated_at)
				VALUES ($1, $2, NOW())
				ON CONFLICT (key) DO UPDATE
				SET body = EXCLUDED.body,
					updated_at = EXCLUDED.updated_at`

	if _, err := s.pool.Exec(ctx, query, key, data); err != nil {
		logger.Error("Repository: Не удалось записать блоб", err, zap.String("key", key), zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("запись блоба %s: %w", key, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция", zap.Duration("ms", time.Since(start)))
	}
	return nil
}
