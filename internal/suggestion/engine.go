package suggestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mwhited/taskflow/internal/task"
)

// Generator produces suggestion drafts from a user's tasks.
type Generator interface {
	GenerateDrafts(ctx context.Context, tasks []*task.Task) ([]Draft, error)
}

// Metrics receives generation outcomes.
type Metrics interface {
	ObserveGeneration(source string, newCount int)
}

// TaskLister loads the tasks visible to a user.
type TaskLister interface {
	ListVisible(ctx context.Context, userID uuid.UUID) ([]*task.Task, error)
}

// Engine orchestrates suggestion generation: model first, rule fallback on
// any failure, then dedup persistence.
type Engine struct {
	store     *Store
	tasks     TaskLister
	generator Generator
	metrics   Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewEngine(store *Store, tasks TaskLister, generator Generator, logger *slog.Logger) *Engine {
	return &Engine{
		store:     store,
		tasks:     tasks,
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
}

// SetMetrics wires an outcome sink. Optional.
func (e *Engine) SetMetrics(m Metrics) {
	e.metrics = m
}

// Generate produces suggestions for the user and returns the full stored
// list plus the number of newly inserted entries. A failing model backend
// never fails the request; the rule fallback covers it.
func (e *Engine) Generate(ctx context.Context, userID uuid.UUID) ([]*Suggestion, int, error) {
	tasks, err := e.tasks.ListVisible(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	source := "model"
	drafts, err := e.generator.GenerateDrafts(ctx, tasks)
	if err != nil {
		e.logger.Warn("model generation failed, using rule fallback",
			"user_id", userID, "error", err)
		source = "fallback"
		drafts = RuleFallback(tasks, e.now())
	}

	inserted, err := e.store.InsertNew(ctx, userID, drafts)
	if err != nil {
		return nil, 0, err
	}
	if e.metrics != nil {
		e.metrics.ObserveGeneration(source, inserted)
	}

	suggestions, err := e.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	return suggestions, inserted, nil
}
