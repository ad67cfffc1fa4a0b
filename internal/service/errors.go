package service

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
)

// ErrCorruptCollection - блоб коллекции не разбирается, а политика не разрешает его проглотить
var ErrCorruptCollection = errors.New("коллекция задач повреждена")

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(id int64) *BusinessError {
	return &BusinessError{
		Code:    CodeNotFound,
		Message: "Not found",
		Details: map[string]any{
			"resource": "task",
			"id":       strconv.FormatInt(id, 10),
		},
	}
}

func NewValidationError(field, reason string) *BusinessError {
	return &BusinessError{
		Code:    CodeValidation,
		Message: reason,
		Details: map[string]any{
			"field":  field,
			"reason": reason,
		},
	}
}

// AsBusinessError достаёт BusinessError из цепочки обёрток
func AsBusinessError(err error) (*BusinessError, bool) {
	var busErr *BusinessError
	if errors.As(err, &busErr) {
		return busErr, true
	}
	return nil, false
}

func IsNotFound(err error) bool {
	busErr, ok := AsBusinessError(err)
	return ok && busErr.Code == CodeNotFound
}

func IsValidation(err error) bool {
	busErr, ok := AsBusinessError(err)
	return ok && busErr.Code == CodeValidation
}
