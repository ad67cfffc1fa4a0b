package worker

import (
	"context"
	"taskboard/internal/logger"
	"time"

	"go.uber.org/zap"
)

const DefaultInterval = 5 * time.Minute

type Snapshotter interface {
	Backup(ctx context.Context) (int, error)
}

// BackupWorker периодически снимает копию коллекции, которой пользуется политика backup
type BackupWorker struct {
	service  Snapshotter
	interval time.Duration
}

func NewBackupWorker(service Snapshotter, interval *time.Duration) *BackupWorker {
	intervalToSet := DefaultInterval
	if interval != nil && *interval > 0 {
		intervalToSet = *interval
	}

	return &BackupWorker{
		service:  service,
		interval: intervalToSet,
	}
}

func (w *BackupWorker) Interval() time.Duration {
	return w.interval
}

// Start делает снимок сразу, затем по тикеру до отмены ctx
func (w *BackupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info("Worker: Запуск снимков коллекции", zap.Duration("interval", w.interval))
	w.Check(ctx)

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Снимки коллекции останавливаются")
			return
		}
	}
}

func (w *BackupWorker) Check(ctx context.Context) {
	start := time.Now()

	count, err := w.service.Backup(ctx)
	if err != nil {
		logger.Warn("Worker: Ошибка снимка коллекции", zap.Error(err))
		return
	}

	logger.Info(
		"Worker: Снимок коллекции сохранён",
		zap.Duration("ms", time.Since(start)),
		zap.Int("tasks", count),
	)
}
