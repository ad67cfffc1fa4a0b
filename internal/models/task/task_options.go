package task

import (
	"time"
)

type TaskOption func(*Task)

func WithStatus(status Status) TaskOption {
	if status == "" {
		return nil
	}
	return func(task *Task) {
		task.Status = status
	}
}

// WithUpdatedAt не даёт updatedAt откатиться назад или совпасть с предыдущим значением
func WithUpdatedAt(at time.Time) TaskOption {
	return func(task *Task) {
		if !at.After(task.UpdatedAt) {
			at = task.UpdatedAt.Add(time.Millisecond)
		}
		task.UpdatedAt = at
	}
}

// Apply применяет опции по порядку, пропуская nil
func (t *Task) Apply(options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
