package handlers

import (
	"net/http"
	"taskboard/internal/handlers/dto"
	"taskboard/internal/logger"
	"time"

	"go.uber.org/zap"
)

const serviceName = "taskboard"

type TaskHandler struct {
	service Service
}

func NewTaskHandler(service Service) *TaskHandler {
	return &TaskHandler{
		service: service,
	}
}

func (h *TaskHandler) rejectContentType(w http.ResponseWriter, r *http.Request) bool {
	if checkContentType(r, "application/json") {
		return false
	}

	logger.Warn("HTTP: Неверный тип контента",
		zap.String("expected", "application/json"),
		zap.String("received", r.Header.Get("Content-Type")),
		zap.String("client_ip", r.RemoteAddr))

	responseWithError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
	return true
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	tasks, err := h.service.List(r.Context())
	if err != nil {
		handleError(w, r, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if h.rejectContentType(w, r) {
		return
	}

	request, err := decodeCreateRequest(w, r)
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	created, err := h.service.Create(r.Context(), request.Description)
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.Int64("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTask(created))
}

func (h *TaskHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if h.rejectContentType(w, r) {
		return
	}

	request, err := decodeUpdateStatusRequest(w, r)
	if err != nil {
		handleError(w, r, err, "update_status")
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), request.ID, request.Status)
	if err != nil {
		handleError(w, r, err, "update_status")
		return
	}

	logger.Info("HTTP_OUT: Статус обновлён",
		zap.Int64("task_id", updated.ID),
		zap.String("status", string(updated.Status)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.FromTask(updated))
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if h.rejectContentType(w, r) {
		return
	}

	request, err := decodeDeleteRequest(w, r)
	if err != nil {
		handleError(w, r, err, "delete_task")
		return
	}

	if err := h.service.Delete(r.Context(), request.ID); err != nil {
		handleError(w, r, err, "delete_task")
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.Int64("task_id", request.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	writeJSON(w, http.StatusOK, dto.DeleteResponse{Success: true})
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.service.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		writeJSON(w, http.StatusServiceUnavailable, dto.HealthResponse{
			Status:  "unavailable",
			Service: serviceName,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok", Service: serviceName})
}
