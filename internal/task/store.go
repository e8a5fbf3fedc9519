package task

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mwhited/taskflow/internal/database"
)

// ErrNotFound is returned when no task matches the id, or the caller's scope
// does not include it.
var ErrNotFound = errors.New("task not found")

const taskColumns = `id, title, description, deadline, priority, status, assigned_to, team_id, created_by, owner_id, created_at, updated_at`

// visibleClause limits rows to tasks assigned to the user directly or via a
// team they belong to.
const visibleClause = `(assigned_to = $1 OR team_id IN (SELECT team_id FROM team_members WHERE user_id = $1))`

// Store provides persistence for tasks.
type Store struct {
	db *database.DB
}

func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Deadline, &t.Priority, &t.Status,
		&t.AssignedTo, &t.TeamID, &t.CreatedBy, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a task. New tasks always start pending.
func (s *Store) Create(ctx context.Context, in CreateTaskInput) (*Task, error) {
	row := s.db.Pool.QueryRow(ctx,
		`INSERT INTO tasks (id, title, description, deadline, priority, status, assigned_to, team_id, created_by, owner_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 RETURNING `+taskColumns,
		uuid.New(), in.Title, in.Description, in.Deadline, in.Priority, StatusPending,
		in.AssignedTo, in.TeamID, in.CreatedBy)

	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// ListAll returns every task newest-first. Reserved for elevated callers.
func (s *Store) ListAll(ctx context.Context) ([]*Task, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return collectTasks(rows)
}

// ListVisible returns the tasks a regular user can see, newest-first.
func (s *Store) ListVisible(ctx context.Context, userID uuid.UUID) ([]*Task, error) {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+visibleClause+` ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return collectTasks(rows)
}

func collectTasks(rows pgx.Rows) ([]*Task, error) {
	defer rows.Close()
	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// GetByID returns a task by id without scoping.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	row := s.db.Pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// IsVisibleTo reports whether the task is in the user's scope, either by
// direct assignment or through team membership.
func (s *Store) IsVisibleTo(ctx context.Context, taskID, userID uuid.UUID) (bool, error) {
	var visible bool
	err := s.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tasks WHERE `+visibleClause+` AND id = $2)`,
		userID, taskID).Scan(&visible)
	if err != nil {
		return false, fmt.Errorf("check task visibility: %w", err)
	}
	return visible, nil
}

// Update applies a partial update and returns the updated task.
func (s *Store) Update(ctx context.Context, id uuid.UUID, in UpdateTaskInput) (*Task, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if in.Title != nil {
		add("title", *in.Title)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Deadline != nil {
		add("deadline", *in.Deadline)
	}
	if in.Priority != nil {
		add("priority", *in.Priority)
	}
	if in.Status != nil {
		add("status", *in.Status)
	}
	if in.AssignedTo != nil {
		add("assigned_to", *in.AssignedTo)
	}
	if in.TeamID != nil {
		add("team_id", *in.TeamID)
	}

	row := s.db.Pool.QueryRow(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+taskColumns,
		args...)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// Delete removes a task.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
