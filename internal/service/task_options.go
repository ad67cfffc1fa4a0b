package service

import (
	"fmt"
	"time"
)

// DecodePolicy определяет, что делать с блобом коллекции, который не разбирается
type DecodePolicy string

const (
	// DecodeForgiving подставляет пустую коллекцию (данные будут перезаписаны при следующей мутации)
	DecodeForgiving DecodePolicy = "forgiving"
	// DecodeStrict отдаёт ErrCorruptCollection
	DecodeStrict DecodePolicy = "strict"
	// DecodeBackup пробует последний снимок из BackupKey, иначе ErrCorruptCollection
	DecodeBackup DecodePolicy = "backup"
)

func ParseDecodePolicy(value string) (DecodePolicy, error) {
	switch policy := DecodePolicy(value); policy {
	case DecodeForgiving, DecodeStrict, DecodeBackup:
		return policy, nil
	case "":
		return DecodeForgiving, nil
	default:
		return "", fmt.Errorf("неизвестная политика декодирования %q", value)
	}
}

type Option func(*TaskService)

func WithDecodePolicy(policy DecodePolicy) Option {
	return func(s *TaskService) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// WithClock подменяет источник времени (нужно тестам)
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) {
		if now != nil {
			s.now = now
		}
	}
}
