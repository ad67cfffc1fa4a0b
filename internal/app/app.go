package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"taskboard/internal/config"
	"taskboard/internal/handlers"
	"taskboard/internal/logger"
	"taskboard/internal/middleware"
	"taskboard/internal/repository/task/file"
	"taskboard/internal/repository/task/inmemory"
	"taskboard/internal/repository/task/postgres"
	"taskboard/internal/repository/task/redis"
	"taskboard/internal/repository/task/sqlite"
	"taskboard/internal/service"
	"taskboard/internal/worker"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository service.BlobStore
	service    *service.TaskService
	worker     *worker.BackupWorker
	shutdowns  []func() // выполняются в обратном порядке
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}

	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	repo, err := a.initRepository(ctx)
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("инициализация хранилища: %w", err)
	}
	a.repository = repo

	policy, err := service.ParseDecodePolicy(a.config.Storage.DecodePolicy)
	if err != nil {
		a.Shutdown()
		return nil, fmt.Errorf("политика декодирования: %w", err)
	}
	a.service = service.NewTaskService(repo, service.WithDecodePolicy(policy))

	if a.config.Backup.Enabled {
		interval := a.config.Backup.Interval
		a.worker = worker.NewBackupWorker(a.service, &interval)
	}

	a.initRouter()

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.String("decode_policy", string(policy)),
		zap.Bool("backup", a.config.Backup.Enabled),
		zap.String("addr", a.server.Addr))

	return a, nil
}

func (a *App) initRepository(ctx context.Context) (service.BlobStore, error) {
	switch a.config.Repository.Type {
	case config.RepositoryFile:
		storage, err := file.New(a.config.Storage.Dir)
		if err != nil {
			return nil, err
		}
		return storage, nil

	case config.RepositoryInMemory:
		logger.Warn("Хранилище в памяти: задачи пропадут после перезапуска")
		return inmemory.NewBlobStorage(), nil

	case config.RepositoryPostgres:
		db := a.config.Database
		if db.Migrate {
			if err := postgres.Migrate(db.URL); err != nil {
				return nil, err
			}
		}
		storage, err := postgres.New(ctx, db.URL, postgres.Options{
			MaxConnections: db.MaxConnections,
			MinConnections: db.MinConnections,
			IdleTimeout:    db.IdleTimeout,
			ConnectTimeout: db.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Закрытие пула PostgreSQL...")
			storage.Close()
		})
		return storage, nil

	case config.RepositoryRedis:
		storage, err := redis.New(ctx, a.config.Redis.URL, a.config.Redis.KeyPrefix, a.config.Redis.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Закрытие клиента Redis...")
			storage.Close()
		})
		return storage, nil

	case config.RepositorySQLite:
		storage, err := sqlite.New(a.config.SQLite.Path)
		if err != nil {
			return nil, err
		}
		a.shutdowns = append(a.shutdowns, storage.Close)
		return storage, nil
	}

	return nil, fmt.Errorf("неизвестный тип хранилища %q", a.config.Repository.Type)
}

func (a *App) initRouter() {
	handler := handlers.NewTaskHandler(a.service)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Timeout(a.config.Server.RequestTimeout))
	r.Use(middleware.RateLimit(a.config.HTTP.RateLimitRPM))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", handler.ListTasks)        // GET /api/tasks
		r.Post("/", handler.CreateTask)      // POST /api/tasks
		r.Put("/", handler.UpdateTaskStatus) // PUT /api/tasks
		r.Delete("/", handler.DeleteTask)    // DELETE /api/tasks
	})

	r.Get("/health", handler.HealthCheck)

	a.router = r
}

func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) Service() *service.TaskService {
	return a.service
}

// Run блокируется до отмены ctx или падения сервера
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	if a.worker != nil {
		g.Go(func() error {
			a.worker.Start(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Остановка сервера...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("остановка http сервера: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = a.shutdowns[:0]
}
