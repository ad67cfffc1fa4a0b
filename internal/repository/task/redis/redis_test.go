//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"taskboard/internal/repository"
	taskredis "taskboard/internal/repository/task/redis"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) (*taskredis.Storage, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithOccurrence(1).WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("Docker недоступен: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	prefix := fmt.Sprintf("test:%d:", time.Now().UnixNano())
	storage, err := taskredis.New(ctx, url, prefix, 10*time.Second)
	require.NoError(t, err)

	return storage, func() {
		storage.Close()
		_ = container.Terminate(ctx)
	}
}

func TestStorage_Integration(t *testing.T) {
	storage, cleanup := setupRedis(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("health check", func(t *testing.T) {
		assert.NoError(t, storage.HealthCheck(ctx))
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := storage.Read(ctx, "tasks")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("write then read", func(t *testing.T) {
		payload := []byte("[\n  {\n    \"id\": 1\n  }\n]")
		require.NoError(t, storage.Write(ctx, "tasks", payload))

		data, err := storage.Read(ctx, "tasks")
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, storage.Write(ctx, "tasks", []byte("[]")))
		data, err := storage.Read(ctx, "tasks")
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
	})

	t.Run("invalid key", func(t *testing.T) {
		assert.ErrorIs(t, storage.Write(ctx, "a b", nil), repository.ErrInvalidKey)
	})
}
