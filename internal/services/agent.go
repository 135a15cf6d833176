package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"planpal-backend/internal/models"
)

const demoReminderDelay = 60 * time.Second

type taskCreator interface {
	Create(ctx context.Context, t *models.Task) error
}

type reminderCreator interface {
	Create(ctx context.Context, r *models.Reminder) error
}

// ReminderScheduler queues a reminder for delivery at a given time.
type ReminderScheduler interface {
	Schedule(ctx context.Context, reminderID uuid.UUID, at time.Time) error
}

// AgentService turns a prompt into persisted tasks and scheduled reminders.
type AgentService struct {
	planner   Planner
	tasks     taskCreator
	reminders reminderCreator
	scheduler ReminderScheduler
	events    EventPublisher
	loc       *time.Location
	demoMode  bool
	now       func() time.Time
}

func NewAgentService(
	planner Planner,
	tasks taskCreator,
	reminders reminderCreator,
	scheduler ReminderScheduler,
	events EventPublisher,
	loc *time.Location,
	demoMode bool,
) *AgentService {
	if loc == nil {
		loc = time.UTC
	}
	return &AgentService{
		planner:   planner,
		tasks:     tasks,
		reminders: reminders,
		scheduler: scheduler,
		events:    events,
		loc:       loc,
		demoMode:  demoMode,
		now:       time.Now,
	}
}

func (s *AgentService) PlanDay(ctx context.Context, prompt string) (*models.PlanDayResponse, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, &ValidationError{Message: "prompt is required"}
	}

	plan, err := s.planner.Plan(ctx, prompt)
	if err != nil {
		return nil, &PlannerError{Message: err.Error()}
	}

	created := []models.CreatedItem{}
	for _, item := range plan.Tasks {
		title := strings.TrimSpace(item.Title)
		if title == "" || item.DueAt == "" {
			continue
		}

		dueAt, ok := parseDueAt(item.DueAt, s.loc)
		if !ok {
			log.WithField("due_at", item.DueAt).Debug("skipping planned task with unparseable due_at")
			continue
		}

		remindBefore := remindMinutes(item.RemindMinutesBefore)

		task := &models.Task{
			Title:    title,
			Category: item.Category,
			Color:    item.Color,
			DueAt:    &dueAt,
		}
		if task.Category == "" {
			task.Category = "Other"
			task.Color = CategoryColors["Other"]
		}
		if err := s.tasks.Create(ctx, task); err != nil {
			return nil, err
		}

		var remindAt time.Time
		if s.demoMode {
			remindAt = s.now().Add(demoReminderDelay)
		} else {
			remindAt = dueAt.Add(-time.Duration(remindBefore) * time.Minute)
		}

		reminder := &models.Reminder{TaskID: task.ID, RemindAt: remindAt}
		if err := s.reminders.Create(ctx, reminder); err != nil {
			return nil, err
		}

		if err := s.scheduler.Schedule(ctx, reminder.ID, remindAt); err != nil {
			return nil, err
		}

		created = append(created, models.CreatedItem{
			TaskID:              task.ID,
			Title:               task.Title,
			DueAt:               dueAt,
			RemindAt:            remindAt,
			RemindMinutesBefore: remindBefore,
		})
	}

	if s.events != nil {
		s.events.Publish(ctx, models.WSMessage{
			Type:    "plan_created",
			Payload: models.PlanCreatedEvent{Date: plan.Date, Created: created},
		})
	}

	return &models.PlanDayResponse{Plan: plan, Created: created}, nil
}

// remindMinutes truncates to whole minutes; missing or zero means the default.
func remindMinutes(v *float64) int {
	if v == nil {
		return DefaultRemindMinutesBefore
	}
	n := int(math.Trunc(*v))
	if n == 0 {
		return DefaultRemindMinutesBefore
	}
	return n
}

var localDueLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseDueAt accepts RFC3339, or a naive datetime read in loc.
func parseDueAt(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range localDueLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
