package suggestion

import (
	"fmt"
	"time"

	"github.com/mwhited/taskflow/internal/task"
)

const maxSuggestions = 5

// RuleFallback derives suggestions from simple task heuristics. It is used
// whenever the model backend is unavailable or returns an unusable response,
// and always produces at least one draft.
func RuleFallback(tasks []*task.Task, now time.Time) []Draft {
	drafts := []Draft{}

	overdue := 0
	high := 0
	pending := 0
	for _, t := range tasks {
		if t.Deadline.Before(now) && t.Status != task.StatusCompleted {
			overdue++
		}
		if t.Priority == task.PriorityHigh {
			high++
		}
		if t.Status == task.StatusPending {
			pending++
		}
	}

	if overdue > 0 {
		drafts = append(drafts, Draft{
			Title:       "Address Overdue Tasks",
			Description: fmt.Sprintf("You have %d overdue task(s). Reschedule them or break them into smaller steps to get back on track.", overdue),
			Category:    CategoryTimeManagement,
			Impact:      ImpactHigh,
		})
	}
	if high > 0 {
		drafts = append(drafts, Draft{
			Title:       "Prioritize High-Impact Work",
			Description: fmt.Sprintf("You have %d high-priority task(s). Tackle these first before lower-priority work.", high),
			Category:    CategoryPriority,
			Impact:      ImpactHigh,
		})
	}
	if pending > 5 {
		drafts = append(drafts, Draft{
			Title:       "Reduce Task Backlog",
			Description: fmt.Sprintf("You have %d pending tasks. Consider completing or delegating some before taking on new work.", pending),
			Category:    CategoryProductivity,
			Impact:      ImpactMedium,
		})
	}
	drafts = append(drafts, Draft{
		Title:       "Daily Planning Routine",
		Description: "Spend 10 minutes each morning reviewing your tasks and picking the three most important ones for the day.",
		Category:    CategoryProductivity,
		Impact:      ImpactMedium,
	})

	if len(drafts) > maxSuggestions {
		drafts = drafts[:maxSuggestions]
	}
	return drafts
}
