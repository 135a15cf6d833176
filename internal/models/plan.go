package models

import (
	"time"

	"github.com/google/uuid"
)

// Plan is the structured output the planner asks the model for.
type Plan struct {
	Date  string        `json:"date"`
	Tasks []PlannedTask `json:"tasks"`
}

type PlannedTask struct {
	Title               string   `json:"title"`
	Category            string   `json:"category"`
	Color               string   `json:"color,omitempty"`
	DueAt               string   `json:"due_at"`
	RemindMinutesBefore *float64 `json:"remind_minutes_before"`
}

type PlanDayRequest struct {
	Prompt string `json:"prompt"`
}

type PlanDayResponse struct {
	Plan    *Plan         `json:"plan"`
	Created []CreatedItem `json:"created"`
}

type CreatedItem struct {
	TaskID              uuid.UUID `json:"task_id"`
	Title               string    `json:"title"`
	DueAt               time.Time `json:"due_at"`
	RemindAt            time.Time `json:"remind_at"`
	RemindMinutesBefore int       `json:"remind_minutes_before"`
}
