package task

import (
	"time"

	"github.com/google/uuid"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// ValidPriority reports whether p is one of the accepted priority values.
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidStatus reports whether s is one of the accepted status values.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// Task is a unit of work assigned to a user, a team, or both.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Deadline    time.Time  `json:"deadline"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
	TeamID      *uuid.UUID `json:"team_id"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	// OwnerID mirrors CreatedBy. It predates team assignment and is kept
	// for consumers that still read it.
	OwnerID   uuid.UUID `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateTaskInput holds the fields for creating a task. At least one of
// AssignedTo or TeamID must be set.
type CreateTaskInput struct {
	Title       string
	Description string
	Deadline    time.Time
	Priority    string
	AssignedTo  *uuid.UUID
	TeamID      *uuid.UUID
	CreatedBy   uuid.UUID
}

// UpdateTaskInput holds optional fields for a partial task update. Clearing
// an assignment is expressed by a pointer to a nil uuid pointer.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Deadline    *time.Time
	Priority    *string
	Status      *string
	AssignedTo  **uuid.UUID
	TeamID      **uuid.UUID
}

// StatusOnly returns a copy of the update stripped down to the status
// field. Regular users may only move their tasks between statuses; every
// other field they submit is dropped, not rejected.
func (in UpdateTaskInput) StatusOnly() UpdateTaskInput {
	return UpdateTaskInput{Status: in.Status}
}
