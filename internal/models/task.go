package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusTodo = "todo"
	TaskStatusDone = "done"
)

type Task struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	Color     string     `json:"color"`
	DueAt     *time.Time `json:"due_at"`
	Status    string     `json:"status"` // "todo" | "done"
	CreatedAt time.Time  `json:"created_at"`
}

type Reminder struct {
	ID        uuid.UUID  `json:"id"`
	TaskID    uuid.UUID  `json:"task_id"`
	RemindAt  time.Time  `json:"remind_at"`
	SentAt    *time.Time `json:"sent_at"`
	CreatedAt time.Time  `json:"created_at"`
}

type TaskWithReminders struct {
	Task
	Reminders []*Reminder `json:"reminders"`
}
