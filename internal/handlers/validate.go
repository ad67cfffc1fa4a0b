package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"taskboard/internal/handlers/dto"
	"taskboard/internal/models/task"
	"taskboard/internal/service"
)

const maxBodyBytes = 1 << 20

// checkContentType пропускает запрос без заголовка: браузерный клиент не всегда его ставит
func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

func invalidBody(err error) *service.BusinessError {
	busErr := service.NewBusinessError(service.CodeValidation, "Invalid JSON body")
	if err != nil {
		busErr.Details["reason"] = err.Error()
	}
	return busErr
}

// decodeObject читает тело как JSON-объект; массив, null и скаляры отвергаются
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, invalidBody(err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, invalidBody(err)
	}
	if fields == nil {
		return nil, invalidBody(nil)
	}
	return fields, nil
}

// stringField возвращает "" для отсутствующего поля и поля не-строки
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

func idField(fields map[string]json.RawMessage) (int64, error) {
	raw, ok := fields["id"]
	if !ok {
		return 0, service.NewValidationError("id", "id must be a number")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return 0, service.NewValidationError("id", "id must be a number")
	}
	number, ok := value.(json.Number)
	if !ok {
		return 0, service.NewValidationError("id", "id must be a number")
	}

	id, ok := wholeNumber(number)
	if !ok || id < 1 {
		return 0, service.NewValidationError("id", "id must be a positive integer")
	}
	return id, nil
}

// wholeNumber принимает и целые в записи с точкой или экспонентой: 1.0, 1e2
func wholeNumber(number json.Number) (int64, bool) {
	if id, err := strconv.ParseInt(number.String(), 10, 64); err == nil {
		return id, true
	}

	value, err := strconv.ParseFloat(number.String(), 64)
	if err != nil || value != math.Trunc(value) || value < math.MinInt64 || value >= float64(1<<63) {
		return 0, false
	}
	return int64(value), true
}

func decodeCreateRequest(w http.ResponseWriter, r *http.Request) (dto.CreateTaskRequest, error) {
	fields, err := decodeObject(w, r)
	if err != nil {
		return dto.CreateTaskRequest{}, err
	}
	return dto.CreateTaskRequest{Description: stringField(fields, "description")}, nil
}

func decodeUpdateStatusRequest(w http.ResponseWriter, r *http.Request) (dto.UpdateStatusRequest, error) {
	fields, err := decodeObject(w, r)
	if err != nil {
		return dto.UpdateStatusRequest{}, err
	}

	id, err := idField(fields)
	if err != nil {
		return dto.UpdateStatusRequest{}, err
	}

	return dto.UpdateStatusRequest{
		ID:     id,
		Status: task.Status(stringField(fields, "status")),
	}, nil
}

func decodeDeleteRequest(w http.ResponseWriter, r *http.Request) (dto.DeleteTaskRequest, error) {
	fields, err := decodeObject(w, r)
	if err != nil {
		return dto.DeleteTaskRequest{}, err
	}

	id, err := idField(fields)
	if err != nil {
		return dto.DeleteTaskRequest{}, err
	}
	return dto.DeleteTaskRequest{ID: id}, nil
}
