package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"planpal-backend/internal/models"
	"planpal-backend/internal/repository"
)

type taskRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context, filter repository.TaskFilter, limit, offset int) ([]*models.Task, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type reminderLister interface {
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Reminder, error)
}

type TaskHandler struct {
	taskRepo     taskRepository
	reminderRepo reminderLister
	loc          *time.Location
}

func NewTaskHandler(taskRepo taskRepository, reminderRepo reminderLister, loc *time.Location) *TaskHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &TaskHandler{
		taskRepo:     taskRepo,
		reminderRepo: reminderRepo,
		loc:          loc,
	}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	filter := repository.TaskFilter{}

	switch status := q.Get("status"); status {
	case "", models.TaskStatusTodo, models.TaskStatusDone:
		filter.Status = status
	default:
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "status must be todo or done", r))
		return
	}

	if date := q.Get("date"); date != "" {
		day, err := time.ParseInLocation("2006-01-02", date, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "date must be YYYY-MM-DD", r))
			return
		}
		filter.Day = &day
	}

	tasks, total, err := h.taskRepo.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks":  tasks,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	task, err := h.taskRepo.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	reminders, err := h.reminderRepo.ListByTask(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.TaskWithReminders{Task: *task, Reminders: reminders})
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := h.taskRepo.UpdateStatus(r.Context(), id, models.TaskStatusDone); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task completed"})
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := taskIDParam(w, r)
	if !ok {
		return
	}

	if err := h.taskRepo.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

func taskIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid task ID", r))
		return uuid.Nil, false
	}
	return id, true
}
