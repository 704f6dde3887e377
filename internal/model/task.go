package model

import "time"

// Priority is stored as free text; the known values are listed below.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is empty or one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a single to-do item owned by one user.
// Category holds either a current Category ID or a legacy literal such as "work".
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	Category    string     `json:"category,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// TaskPatch describes a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title        *string
	Description  *string
	Completed    *bool
	DueDate      *time.Time
	ClearDueDate bool
	Priority     *Priority
	Category     *string
}

// Apply merges the patch into task.
func (p TaskPatch) Apply(task *Task) {
	if p.Title != nil {
		task.Title = *p.Title
	}
	if p.Description != nil {
		task.Description = *p.Description
	}
	if p.Completed != nil {
		task.Completed = *p.Completed
	}
	if p.ClearDueDate {
		task.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		task.DueDate = &due
	}
	if p.Priority != nil {
		task.Priority = *p.Priority
	}
	if p.Category != nil {
		task.Category = *p.Category
	}
}
