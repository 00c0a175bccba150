package domain

import (
	"encoding/json"
	"time"
)

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusToDo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusReview     TaskStatus = "Review"
	StatusCompleted  TaskStatus = "Completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// TaskPriority ranks tasks from Low to Urgent.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
	PriorityUrgent TaskPriority = "Urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities; 0 means unknown.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

const MaxTitleLength = 100

// Task is a unit of work created by one user and optionally assigned to another.
type Task struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	DueDate      time.Time    `json:"dueDate"`
	Priority     TaskPriority `json:"priority"`
	Status       TaskStatus   `json:"status"`
	CreatorID    string       `json:"creatorId"`
	AssignedToID *string      `json:"assignedToId,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// CanView reports whether userID may read the task.
func (t *Task) CanView(userID string) bool {
	if t.CreatorID == userID {
		return true
	}
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

// CanModify reports whether userID may update or delete the task.
func (t *Task) CanModify(userID string) bool {
	return t.CreatorID == userID
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Title        string       `json:"title" binding:"required,max=100"`
	Description  string       `json:"description" binding:"required"`
	DueDate      time.Time    `json:"dueDate" binding:"required"`
	Priority     TaskPriority `json:"priority"`
	Status       TaskStatus   `json:"status"`
	AssignedToID *string      `json:"assignedToId"`
}

// UpdateTaskRequest represents a partial task update.
type UpdateTaskRequest struct {
	Title        *string       `json:"title" binding:"omitempty,min=1,max=100"`
	Description  *string       `json:"description"`
	DueDate      *time.Time    `json:"dueDate"`
	Priority     *TaskPriority `json:"priority"`
	Status       *TaskStatus   `json:"status"`
	AssignedToID NullableID    `json:"assignedToId"`
}

// NullableID distinguishes an absent JSON field from an explicit null.
// Set is true whenever the field was present; Value is nil for null.
type NullableID struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked for fields present in the document.
func (n *NullableID) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	n.Value = &id
	return nil
}

// Sort keys accepted by TaskFilter.
const (
	SortByDueDate   = "dueDate"
	SortByCreatedAt = "createdAt"
	SortByPriority  = "priority"
)

// TaskScope selects which relation to the caller a listing uses.
type TaskScope int

const (
	ScopeInvolved TaskScope = iota // created by or assigned to
	ScopeCreated
	ScopeAssigned
)

// TaskFilter narrows and orders task listings.
type TaskFilter struct {
	Scope    TaskScope
	Status   TaskStatus
	Priority TaskPriority
	SortBy   string
	Desc     bool
}
