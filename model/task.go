package model

import (
	"fmt"
	"strings"
	"time"
)

type TaskPriority string

const (
	PriorityLow      TaskPriority = "Low"
	PriorityMedium   TaskPriority = "Medium"
	PriorityHigh     TaskPriority = "High"
	PriorityCritical TaskPriority = "Critical"
)

// ParseTaskPriority is case-insensitive; an empty string yields the default (Medium).
func ParseTaskPriority(s string) (TaskPriority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return "", fmt.Errorf("unknown task priority %q", s)
	}
}

type TaskStatus string

const (
	StatusNew        TaskStatus = "New"
	StatusInProgress TaskStatus = "InProgress"
	StatusCompleted  TaskStatus = "Completed"
	StatusOverdue    TaskStatus = "Overdue"
	StatusCancelled  TaskStatus = "Cancelled"
)

// ParseTaskStatus is case-insensitive and tolerates "in_progress" / "in progress".
func ParseTaskStatus(s string) (TaskStatus, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", " ", "", "-", "").Replace(key)
	switch key {
	case "new":
		return StatusNew, nil
	case "inprogress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	case "overdue":
		return StatusOverdue, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	default:
		return "", fmt.Errorf("unknown task status %q", s)
	}
}

type Task struct {
	ID               int          `json:"id"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	DueDate          time.Time    `json:"due_date"`
	Priority         TaskPriority `json:"priority"`
	Status           TaskStatus   `json:"status"`
	AssignedUserID   int          `json:"assigned_user_id"`
	AssignedUsername string       `json:"assigned_username,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
	RescheduledDate  *time.Time   `json:"rescheduled_date,omitempty"`
	LastUpdatedBy    string       `json:"last_updated_by,omitempty"`
	LastUpdatedAt    time.Time    `json:"last_updated_at"`
}
