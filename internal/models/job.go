package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderJob is the unit scheduled on the reminder queue.
type ReminderJob struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	Attempt    int       `json:"attempt"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type PlanCreatedEvent struct {
	Date    string        `json:"date"`
	Created []CreatedItem `json:"created"`
}

type ReminderSentEvent struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	TaskID     uuid.UUID `json:"task_id"`
	Title      string    `json:"title"`
	SentAt     time.Time `json:"sent_at"`
}

type ErrorEvent struct {
	ReminderID   uuid.UUID `json:"reminder_id"`
	ErrorCode    string    `json:"error_code"`
	ErrorMessage string    `json:"error_message"`
}

// ErrorResponse keeps "error" a plain string so API clients can surface it directly.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
