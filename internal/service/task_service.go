package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"taskboard/internal/logger"
	"taskboard/internal/models/task"
	"taskboard/internal/repository"
	"time"

	"go.uber.org/zap"
)

const (
	CollectionKey = "tasks"
	SequenceKey   = "tasks.seq"
	BackupKey     = "tasks.backup"
)

// TaskService владеет коллекцией задач. Каждая операция делает полный цикл
// загрузка-изменение-запись всего блоба под одним мьютексом, поэтому
// запросы внутри одного процесса не теряют обновления. Несколько процессов
// над одним блобом по-прежнему гоняются: выигрывает последний писатель.
type TaskService struct {
	repo   BlobStore
	policy DecodePolicy
	now    func() time.Time
	mtx    sync.Mutex
}

func NewTaskService(repo BlobStore, opts ...Option) *TaskService {
	s := &TaskService{
		repo:   repo,
		policy: DecodeForgiving,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) Policy() DecodePolicy {
	return s.policy
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (s *TaskService) List(ctx context.Context) ([]task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	tasks, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, description string) (*task.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		logger.Info("Service: Пустое описание задачи")
		return nil, NewValidationError("description", "description is required")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	tasks, skippedMaxID, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	lastID, err := s.lastAssignedID(ctx)
	if err != nil {
		return nil, err
	}

	id := max(lastID, tasks.MaxID(), skippedMaxID) + 1
	created := task.New(id, description, s.stamp())

	// сначала счётчик: если запись коллекции упадёт, id просто пропустится
	if err := s.saveSequence(ctx, id); err != nil {
		return nil, err
	}
	if err := s.save(ctx, append(tasks, created)); err != nil {
		return nil, err
	}

	logger.Info("Service: Задача создана", zap.Int64("task_id", id))
	return &created, nil
}

func (s *TaskService) UpdateStatus(ctx context.Context, id int64, status task.Status) (*task.Task, error) {
	if id < 1 {
		return nil, NewValidationError("id", "id must be a positive integer")
	}
	if !status.Valid() {
		return nil, NewValidationError("status", "status must be todo | in-progress | done")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	tasks, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	idx := tasks.IndexOf(id)
	if idx < 0 {
		logger.Info("Service: Задача не найдена", zap.Int64("target_id", id))
		return nil, NewNotFound(id)
	}

	tasks[idx].Apply(task.WithStatus(status), task.WithUpdatedAt(s.stamp()))

	if err := s.save(ctx, tasks); err != nil {
		return nil, err
	}

	updated := tasks[idx]
	logger.Info("Service: Статус задачи обновлён",
		zap.Int64("task_id", id),
		zap.String("status", string(status)))
	return &updated, nil
}

// Delete идемпотентен: отсутствие задачи не ошибка, коллекция перезаписывается в любом случае
func (s *TaskService) Delete(ctx context.Context, id int64) error {
	if id < 1 {
		return NewValidationError("id", "id must be a positive integer")
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	tasks, _, err := s.load(ctx)
	if err != nil {
		return err
	}

	rest, removed := tasks.Without(id)
	if err := s.save(ctx, rest); err != nil {
		return err
	}

	logger.Info("Service: Удаление задачи", zap.Int64("task_id", id), zap.Int("removed", removed))
	return nil
}

// Backup копирует текущий блоб коллекции в BackupKey, если он разбирается.
// Возвращает число задач в снимке.
func (s *TaskService) Backup(ctx context.Context) (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	data, err := s.repo.Read(ctx, CollectionKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("чтение коллекции для снимка: %w", err)
	}

	decoded, err := decodeCollection(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorruptCollection, err)
	}

	if err := s.repo.Write(ctx, BackupKey, data); err != nil {
		return 0, fmt.Errorf("запись снимка: %w", err)
	}
	return len(decoded.Tasks), nil
}

func (s *TaskService) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// load возвращает коллекцию и наибольший id среди отброшенных элементов,
// чтобы их id не выдавались повторно
func (s *TaskService) load(ctx context.Context) (task.Collection, int64, error) {
	data, err := s.repo.Read(ctx, CollectionKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Коллекция ещё не создана, записываем пустую")
			empty := task.Collection{}
			if err := s.save(ctx, empty); err != nil {
				return nil, 0, err
			}
			return empty, 0, nil
		}
		return nil, 0, fmt.Errorf("загрузка коллекции: %w", err)
	}

	decoded, err := decodeCollection(data)
	if err != nil {
		tasks, err := s.recoverCollection(ctx, err)
		return tasks, 0, err
	}
	if decoded.Skipped > 0 {
		logger.Warn("Service: В коллекции есть нераспознанные элементы, пропускаем их",
			zap.Int("skipped", decoded.Skipped),
			zap.Int64("skipped_max_id", decoded.SkippedMaxID),
			zap.Int("tasks", len(decoded.Tasks)))
	}
	return decoded.Tasks, decoded.SkippedMaxID, nil
}

func (s *TaskService) recoverCollection(ctx context.Context, decodeErr error) (task.Collection, error) {
	switch s.policy {
	case DecodeStrict:
		logger.Error("Service: Коллекция повреждена", decodeErr)
		return nil, fmt.Errorf("%w: %v", ErrCorruptCollection, decodeErr)

	case DecodeBackup:
		data, err := s.repo.Read(ctx, BackupKey)
		if err != nil {
			logger.Error("Service: Коллекция повреждена, снимок недоступен", err)
			return nil, fmt.Errorf("%w: %v", ErrCorruptCollection, decodeErr)
		}
		decoded, err := decodeCollection(data)
		if err != nil {
			logger.Error("Service: Коллекция и снимок повреждены", err)
			return nil, fmt.Errorf("%w: %v", ErrCorruptCollection, decodeErr)
		}
		logger.Warn("Service: Коллекция повреждена, используем снимок",
			zap.Int("tasks", len(decoded.Tasks)),
			zap.NamedError("decode_error", decodeErr))
		return decoded.Tasks, nil

	default:
		logger.Warn("Service: Коллекция повреждена, считаем её пустой", zap.NamedError("decode_error", decodeErr))
		return task.Collection{}, nil
	}
}

func (s *TaskService) save(ctx context.Context, tasks task.Collection) error {
	data, err := encodeCollection(tasks)
	if err != nil {
		return fmt.Errorf("кодирование коллекции: %w", err)
	}
	if err := s.repo.Write(ctx, CollectionKey, data); err != nil {
		return fmt.Errorf("сохранение коллекции: %w", err)
	}
	return nil
}

func (s *TaskService) lastAssignedID(ctx context.Context) (int64, error) {
	data, err := s.repo.Read(ctx, SequenceKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("чтение счётчика id: %w", err)
	}

	lastID, err := decodeSequence(data)
	if err != nil {
		logger.Warn("Service: Счётчик id повреждён, опираемся на коллекцию", zap.Error(err))
		return 0, nil
	}
	return lastID, nil
}

func (s *TaskService) saveSequence(ctx context.Context, lastID int64) error {
	data, err := encodeSequence(lastID)
	if err != nil {
		return fmt.Errorf("кодирование счётчика id: %w", err)
	}
	if err := s.repo.Write(ctx, SequenceKey, data); err != nil {
		return fmt.Errorf("сохранение счётчика id: %w", err)
	}
	return nil
}
