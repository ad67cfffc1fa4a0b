package dto

import (
	"taskboard/internal/models/task"
	"time"
)

const TimeLayout = task.TimeLayout

type CreateTaskRequest struct {
	Description string
}

type UpdateStatusRequest struct {
	ID     int64
	Status task.Status
}

type DeleteTaskRequest struct {
	ID int64
}

type TaskResponse struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type DeleteResponse struct {
	Success bool `json:"success"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Error   string `json:"error,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Description: t.Description,
		Status:      string(t.Status),
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}
}

func FromTaskList(tasks []task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i := range tasks {
		result[i] = FromTask(&tasks[i])
	}
	return result
}
