package file_test

import (
	"context"
	"os"
	"path/filepath"
	"taskboard/internal/repository"
	"taskboard/internal/repository/task/file"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) (*file.Storage, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "data")
	storage, err := file.New(dir)
	require.NoError(t, err)
	return storage, dir
}

// TestStorage_New тестирует создание каталога
func TestStorage_New(t *testing.T) {
	_, dir := newStorage(t)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	_, err = file.New("")
	assert.Error(t, err)
}

// TestStorage_HealthCheck тестирует проверку здоровья
func TestStorage_HealthCheck(t *testing.T) {
	storage, dir := newStorage(t)
	assert.NoError(t, storage.HealthCheck(context.Background()))

	require.NoError(t, os.RemoveAll(dir))
	assert.Error(t, storage.HealthCheck(context.Background()))
}

// TestStorage_ReadMissing тестирует отсутствие файла
func TestStorage_ReadMissing(t *testing.T) {
	storage, _ := newStorage(t)

	_, err := storage.Read(context.Background(), "tasks")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestStorage_WriteRead тестирует запись в <dir>/<key>.json и чтение
func TestStorage_WriteRead(t *testing.T) {
	ctx := context.Background()
	storage, dir := newStorage(t)

	payload := []byte("[\n  {\n    \"id\": 1\n  }\n]")
	require.NoError(t, storage.Write(ctx, "tasks", payload))

	onDisk, err := os.ReadFile(filepath.Join(dir, "tasks.json"))
	require.NoError(t, err)
	assert.Equal(t, payload, onDisk)
	assert.Equal(t, filepath.Join(dir, "tasks.json"), storage.Path("tasks"))

	data, err := storage.Read(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

// TestStorage_Overwrite проверяет, что перезапись не оставляет временных файлов
func TestStorage_Overwrite(t *testing.T) {
	ctx := context.Background()
	storage, dir := newStorage(t)

	require.NoError(t, storage.Write(ctx, "tasks", []byte("[1,2,3]")))
	require.NoError(t, storage.Write(ctx, "tasks", []byte("[]")))

	data, err := storage.Read(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tasks.json", entries[0].Name())
}

// TestStorage_InvalidKey тестирует защиту от выхода за пределы каталога
func TestStorage_InvalidKey(t *testing.T) {
	ctx := context.Background()
	storage, _ := newStorage(t)

	assert.ErrorIs(t, storage.Write(ctx, "../escape", []byte("x")), repository.ErrInvalidKey)
	_, err := storage.Read(ctx, "a/b")
	assert.ErrorIs(t, err, repository.ErrInvalidKey)
}

// TestStorage_CanceledContext тестирует отмену контекста
func TestStorage_CanceledContext(t *testing.T) {
	storage, _ := newStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, storage.Write(ctx, "tasks", []byte("[]")), context.Canceled)
	_, err := storage.Read(ctx, "tasks")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestStorage_ReadDirectoryFails тестирует ошибку ввода-вывода, отличную от отсутствия файла
func TestStorage_ReadDirectoryFails(t *testing.T) {
	storage, dir := newStorage(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tasks.json"), 0o755))

	_, err := storage.Read(context.Background(), "tasks")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}
