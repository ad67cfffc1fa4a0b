package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"taskboard/internal/logger"
	repo "taskboard/internal/repository"
	"time"

	"go.uber.org/zap"
)

const fileExt = ".json"

// Storage хранит каждый блоб в отдельном файле <dir>/<key>.json.
// Запись атомарна: временный файл, fsync, rename, fsync каталога.
type Storage struct {
	dir  string
	perm fs.FileMode
}

func New(dir string) (*Storage, error) {
	if dir == "" {
		return nil, errors.New("каталог хранилища не задан")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("Repository: Не удалось создать каталог хранилища", err, zap.String("dir", dir))
		return nil, fmt.Errorf("создание каталога %s: %w", dir, err)
	}

	logger.Info("Repository: Файловое хранилище готово", zap.String("dir", dir))
	return &Storage{dir: dir, perm: 0o644}, nil
}

// Path возвращает путь к файлу блоба
func (s *Storage) Path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		logger.Error("Repository: Каталог хранилища недоступен", err)
		return fmt.Errorf("проверка каталога: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("проверка каталога: %s не является каталогом", s.dir)
	}
	return nil
}

func (s *Storage) Read(ctx context.Context, key string) ([]byte, error) {
	if err := repo.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
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
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	if err := writeFileAtomic(s.Path(key), data, s.perm); err != nil {
		logger.Error("Repository: Не удалось записать блоб", err, zap.String("key", key))
		return fmt.Errorf("запись блоба %s: %w", key, err)
	}

	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная запись", zap.String("key", key), zap.Duration("ms", time.Since(start)))
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()

	// не все файловые системы умеют fsync каталога
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}
