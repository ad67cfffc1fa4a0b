package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"taskboard/internal/app"
	"taskboard/internal/config"
	"taskboard/internal/handlers/dto"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Repository.Type = config.RepositoryInMemory
	cfg.Logging.Development = true
	cfg.HTTP.RateLimitRPM = 0
	return cfg
}

func initApp(t *testing.T, cfg *config.Config) *app.App {
	t.Helper()
	a, err := app.New(cfg).Init(context.Background())
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func do(t *testing.T, srv *httptest.Server, method, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+"/api/tasks", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestApp_Scenario(t *testing.T) {
	a := initApp(t, newTestConfig(t))
	srv := httptest.NewServer(a.Router())
	defer srv.Close()

	// создание
	resp := do(t, srv, http.MethodPost, `{"description":"buy milk"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var created dto.TaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "todo", created.Status)
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	// список
	resp = do(t, srv, http.MethodGet, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []dto.TaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])

	// смена статуса
	resp = do(t, srv, http.MethodPut, `{"id":1,"status":"done"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated dto.TaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, "done", updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.NotEqual(t, created.UpdatedAt, updated.UpdatedAt)

	// неизвестный id
	resp = do(t, srv, http.MethodPut, `{"id":99,"status":"done"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// пустое описание
	resp = do(t, srv, http.MethodPost, `{"description":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// удаление дважды
	for i := 0; i < 2; i++ {
		resp = do(t, srv, http.MethodDelete, `{"id":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var deleted dto.DeleteResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&deleted))
		assert.True(t, deleted.Success)
	}

	resp = do(t, srv, http.MethodGet, "")
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)

	// id не переиспользуется
	resp = do(t, srv, http.MethodPost, `{"description":"second"}`)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, int64(2), created.ID)
}

func TestApp_Health(t *testing.T) {
	a := initApp(t, newTestConfig(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"taskboard"}`, w.Body.String())
}

func TestApp_CORSPreflight(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	a := initApp(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_MethodNotAllowed(t *testing.T) {
	a := initApp(t, newTestConfig(t))

	req := httptest.NewRequest(http.MethodPatch, "/api/tasks", nil)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestApp_FileRepositoryPersists(t *testing.T) {
	dir := t.TempDir()
	cfg := newTestConfig(t)
	cfg.Repository.Type = config.RepositoryFile
	cfg.Storage.Dir = dir

	a := initApp(t, cfg)
	_, err := a.Service().Create(context.Background(), "persist me")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "tasks.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "persist me")

	// второй экземпляр читает тот же каталог
	restarted := initApp(t, cfg)
	tasks, err := restarted.Service().List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "persist me", tasks[0].Description)
}

func TestApp_SQLiteRepository(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Repository.Type = config.RepositorySQLite
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "taskboard.db")

	a := initApp(t, cfg)
	created, err := a.Service().Create(context.Background(), "in sqlite")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	require.NoError(t, a.Service().HealthCheck(context.Background()))
}

func TestApp_InitErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "unknown repository", mutate: func(c *config.Config) { c.Repository.Type = "mongo" }},
		{name: "unknown decode policy", mutate: func(c *config.Config) { c.Storage.DecodePolicy = "lenient" }},
		{name: "bad redis url", mutate: func(c *config.Config) {
			c.Repository.Type = config.RepositoryRedis
			c.Redis.URL = "not-a-url"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			tt.mutate(cfg)

			_, err := app.New(cfg).Init(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Backup.Enabled = true
	cfg.Backup.Interval = 10 * time.Millisecond
	a := initApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run не завершился после отмены контекста")
	}
}
