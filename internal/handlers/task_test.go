package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"planpal-backend/internal/models"
	"planpal-backend/internal/repository"
)

type stubTaskRepo struct {
	task        *models.Task
	tasks       []*models.Task
	lastFilter  repository.TaskFilter
	lastLimit   int
	lastOffset  int
	statusID    uuid.UUID
	statusValue string
	deletedID   uuid.UUID
	mutationErr error
}

func (s *stubTaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	if s.task == nil || s.task.ID != id {
		return nil, pgx.ErrNoRows
	}
	return s.task, nil
}

func (s *stubTaskRepo) List(ctx context.Context, filter repository.TaskFilter, limit, offset int) ([]*models.Task, int, error) {
	s.lastFilter = filter
	s.lastLimit = limit
	s.lastOffset = offset
	return s.tasks, len(s.tasks), nil
}

func (s *stubTaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.statusID = id
	s.statusValue = status
	return s.mutationErr
}

func (s *stubTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	s.deletedID = id
	return s.mutationErr
}

type stubReminderLister struct {
	reminders []*models.Reminder
}

func (s *stubReminderLister) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Reminder, error) {
	return s.reminders, nil
}

func withTaskID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestTaskHandler_List_Filters(t *testing.T) {
	repo := &stubTaskRepo{}
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	h := NewTaskHandler(repo, &stubReminderLister{}, berlin)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/?status=todo&date=2026-10-20&limit=500&offset=-3", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if repo.lastFilter.Status != "todo" {
		t.Errorf("expected status filter todo, got %q", repo.lastFilter.Status)
	}
	if repo.lastFilter.Day == nil || !repo.lastFilter.Day.Equal(time.Date(2026, 10, 20, 0, 0, 0, 0, berlin)) {
		t.Errorf("unexpected day filter: %v", repo.lastFilter.Day)
	}
	if repo.lastLimit != 50 || repo.lastOffset != 0 {
		t.Errorf("expected clamped limit/offset 50/0, got %d/%d", repo.lastLimit, repo.lastOffset)
	}

	payload := decodeBody(t, rr)
	if tasks, ok := payload["tasks"].([]interface{}); !ok || len(tasks) != 0 {
		t.Errorf("expected empty task array, got %v", payload["tasks"])
	}
}

func TestTaskHandler_List_Validation(t *testing.T) {
	h := NewTaskHandler(&stubTaskRepo{}, &stubReminderLister{}, nil)

	for _, query := range []string{"?status=archived", "?date=20-10-2026"} {
		rr := httptest.NewRecorder()
		h.List(rr, httptest.NewRequest(http.MethodGet, "/api/tasks/"+query, nil))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", query, rr.Code)
		}
	}
}

func TestTaskHandler_Get(t *testing.T) {
	task := &models.Task{ID: uuid.New(), Title: "Gym", Status: models.TaskStatusTodo}
	reminders := []*models.Reminder{{ID: uuid.New(), TaskID: task.ID}}
	h := NewTaskHandler(&stubTaskRepo{task: task}, &stubReminderLister{reminders: reminders}, nil)

	rr := httptest.NewRecorder()
	h.Get(rr, withTaskID(httptest.NewRequest(http.MethodGet, "/", nil), task.ID.String()))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	payload := decodeBody(t, rr)
	if payload["title"] != "Gym" {
		t.Errorf("expected embedded task fields, got %v", payload)
	}
	if rems, ok := payload["reminders"].([]interface{}); !ok || len(rems) != 1 {
		t.Errorf("expected one reminder, got %v", payload["reminders"])
	}

	rr = httptest.NewRecorder()
	h.Get(rr, withTaskID(httptest.NewRequest(http.MethodGet, "/", nil), uuid.NewString()))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Get(rr, withTaskID(httptest.NewRequest(http.MethodGet, "/", nil), "not-a-uuid"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", rr.Code)
	}
}

func TestTaskHandler_Complete(t *testing.T) {
	repo := &stubTaskRepo{}
	h := NewTaskHandler(repo, &stubReminderLister{}, nil)
	id := uuid.New()

	rr := httptest.NewRecorder()
	h.Complete(rr, withTaskID(httptest.NewRequest(http.MethodPost, "/", nil), id.String()))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if repo.statusID != id || repo.statusValue != models.TaskStatusDone {
		t.Fatalf("unexpected update: %s %q", repo.statusID, repo.statusValue)
	}

	repo.mutationErr = pgx.ErrNoRows
	rr = httptest.NewRecorder()
	h.Complete(rr, withTaskID(httptest.NewRequest(http.MethodPost, "/", nil), id.String()))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestTaskHandler_Delete(t *testing.T) {
	repo := &stubTaskRepo{}
	h := NewTaskHandler(repo, &stubReminderLister{}, nil)
	id := uuid.New()

	rr := httptest.NewRecorder()
	h.Delete(rr, withTaskID(httptest.NewRequest(http.MethodDelete, "/", nil), id.String()))

	if rr.Code != http.StatusOK || repo.deletedID != id {
		t.Fatalf("expected delete of %s, got status %d id %s", id, rr.Code, repo.deletedID)
	}
}
