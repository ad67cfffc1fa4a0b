package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"taskboard/internal/logger"
	repo "taskboard/internal/repository"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const schema = `
	CREATE TABLE IF NOT EXISTS task_blobs (
		key TEXT PRIMARY KEY,
		body BLOB NOT NULL,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`

// Storage - блобы в одном файле SQLite, одна строка на ключ
type Storage struct {
	db   *sql.DB
	path string
}

func New(path string) (*Storage, error) {
	if path == "" {
		return nil, errors.New("путь к базе SQLite не задан")
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("создание каталога %s: %w", filepath.Dir(path), err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		logger.Error("Repository: Ошибка открытия SQLite", err)
		return nil, fmt.Errorf("открытие %s: %w", path, err)
	}
	// один писатель: SQLite всё равно сериализует запись
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		logger.Error("Repository: Ошибка создания схемы SQLite", err)
		return nil, fmt.Errorf("создание схемы: %w", err)
	}

	logger.Info("Repository: SQLite открыт", zap.String("path", path))
	return &Storage{db: db, path: path}, nil
}

func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		logger.Error("Repository: Ошибка закрытия SQLite", err)
		return
	}
	logger.Info("Repository: SQLite закрыт", zap.String("path", s.path))
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
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

	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM task_blobs WHERE key = ?`, key).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось прочитать блоб", err, zap.String("key", key), zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("чтение блоба %s: %w", key, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	if body == nil {
		body = []byte{}
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
				VALUES (?, ?, CURRENT_TIMESTAMP)
				ON CONFLICT (key) DO UPDATE
				SET body = excluded.body,
					updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, key, data); err != nil {
		logger.Error("Repository: Не удалось записать блоб", err, zap.String("key", key), zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("запись блоба %s: %w", key, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленный запрос", zap.Duration("ms", time.Since(start)))
	}
	return nil
}
