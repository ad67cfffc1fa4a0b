package handlers

import (
	"context"
	"taskboard/internal/models/task"
)

type Service interface {
	HealthCheck(ctx context.Context) error
	List(ctx context.Context) ([]task.Task, error)
	Create(ctx context.Context, description string) (*task.Task, error)
	UpdateStatus(ctx context.Context, id int64, status task.Status) (*task.Task, error)
	Delete(ctx context.Context, id int64) error
}
