package suggestion

import (
	"time"

	"github.com/google/uuid"
)

const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"

	CategoryProductivity   = "productivity"
	CategoryTimeManagement = "time-management"
	CategoryPriority       = "priority"
	CategoryAutomation     = "automation"
)

// ValidImpact reports whether v is one of the accepted impact levels.
func ValidImpact(v string) bool {
	return v == ImpactLow || v == ImpactMedium || v == ImpactHigh
}

// ValidCategory reports whether v is one of the accepted categories.
func ValidCategory(v string) bool {
	switch v {
	case CategoryProductivity, CategoryTimeManagement, CategoryPriority, CategoryAutomation:
		return true
	}
	return false
}

// Draft is a generated suggestion before persistence.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Impact      string `json:"impact"`
}

// Valid reports whether a draft passes structural validation: non-empty
// title and description, known category and impact.
func (d Draft) Valid() bool {
	return d.Title != "" && d.Description != "" && ValidCategory(d.Category) && ValidImpact(d.Impact)
}

// Suggestion is a persisted productivity suggestion for a user.
type Suggestion struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Impact        string    `json:"impact"`
	IsImplemented bool      `json:"is_implemented"`
	CreatedAt     time.Time `json:"created_at"`
}
