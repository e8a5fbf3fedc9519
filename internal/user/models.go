package user

import (
	"time"

	"github.com/google/uuid"
	"github.com/mwhited/taskflow/internal/auth"
)

// User is a registered account. The first-ever registered user becomes the
// owner; there is never more than one.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         auth.Role `json:"role"`
	IsOwner      bool      `json:"is_owner"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateUserInput holds the fields required to register a user. Role is only
// honored when the admin-secret gate in the handler has passed.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     auth.Role
}
