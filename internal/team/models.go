package team

import (
	"time"

	"github.com/google/uuid"
)

// Member is the brief user shape embedded in team responses.
type Member struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Team groups regular users for shared task assignment. Teams are never hard
// deleted; deactivation flips IsActive and frees the name for reuse.
type Team struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Members     []Member  `json:"members"`
	CreatedBy   uuid.UUID `json:"created_by"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateTeamInput holds the fields for creating a team.
type CreateTeamInput struct {
	Name        string
	Description string
	MemberIDs   []uuid.UUID
	CreatedBy   uuid.UUID
}

// UpdateTeamInput holds optional fields for a partial team update. A non-nil
// MemberIDs replaces the full membership set.
type UpdateTeamInput struct {
	Name        *string
	Description *string
	MemberIDs   *[]uuid.UUID
}
