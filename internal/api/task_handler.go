package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mwhited/taskflow/internal/auth"
	"github.com/mwhited/taskflow/internal/task"
	"github.com/mwhited/taskflow/internal/team"
	"github.com/mwhited/taskflow/internal/user"
)

// tasksHandler groups task HTTP handlers.
type tasksHandler struct {
	tasks *task.Store
	teams *team.Store
	users *user.Store
}

func newTasksHandler(tasks *task.Store, teams *team.Store, users *user.Store) *tasksHandler {
	return &tasksHandler{tasks: tasks, teams: teams, users: users}
}

// List handles GET /api/v1/tasks. Elevated callers see every task, regular
// users only tasks in their assignment scope.
func (h *tasksHandler) List(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	var (
		tasks []*task.Task
		err   error
	)
	if p.Role.AtLeast(auth.RoleAdmin) {
		tasks, err = h.tasks.ListAll(r.Context())
	} else {
		tasks, err = h.tasks.ListVisible(r.Context(), p.ID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list tasks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

// Create handles POST /api/v1/tasks.
func (h *tasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	var req struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Deadline    time.Time  `json:"deadline"`
		Priority    string     `json:"priority"`
		AssignedTo  *uuid.UUID `json:"assigned_to"`
		TeamID      *uuid.UUID `json:"team_id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "title is required")
		return
	}
	if req.Deadline.IsZero() {
		writeError(w, http.StatusBadRequest, "validation_error", "deadline is required")
		return
	}
	if req.Priority == "" {
		req.Priority = task.PriorityMedium
	}
	if !task.ValidPriority(req.Priority) {
		writeError(w, http.StatusBadRequest, "validation_error", "priority must be low, medium or high")
		return
	}
	if req.AssignedTo == nil && req.TeamID == nil {
		writeError(w, http.StatusBadRequest, "validation_error", "task needs an assignee or a team")
		return
	}

	if req.AssignedTo != nil {
		if _, err := h.users.GetByID(r.Context(), *req.AssignedTo); err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "assignee does not exist")
			return
		}
	}
	if req.TeamID != nil {
		ok, err := h.teams.ExistsActive(r.Context(), *req.TeamID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to validate team")
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, "validation_error", "team does not exist")
			return
		}
	}

	t, err := h.tasks.Create(r.Context(), task.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		TeamID:      req.TeamID,
		CreatedBy:   p.ID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create task")
		return
	}

	auditLog(r, "task.create", "task", t.ID.String())
	writeJSON(w, http.StatusCreated, t)
}

// Get handles GET /api/v1/tasks/{id}. Out-of-scope tasks are reported as
// missing so ids cannot be probed.
func (h *tasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}

	if !p.Role.AtLeast(auth.RoleAdmin) {
		visible, err := h.tasks.IsVisibleTo(r.Context(), id, p.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load task")
			return
		}
		if !visible {
			writeError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
	}

	t, err := h.tasks.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load task")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update handles PUT /api/v1/tasks/{id}. Admins may change any field;
// regular users may only move tasks in their scope between statuses.
func (h *tasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}

	var req struct {
		Title       *string         `json:"title"`
		Description *string         `json:"description"`
		Deadline    *time.Time      `json:"deadline"`
		Priority    *string         `json:"priority"`
		Status      *string         `json:"status"`
		AssignedTo  json.RawMessage `json:"assigned_to"`
		TeamID      json.RawMessage `json:"team_id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	in := task.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    req.Deadline,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "title cannot be empty")
		return
	}
	if in.Priority != nil && !task.ValidPriority(*in.Priority) {
		writeError(w, http.StatusBadRequest, "validation_error", "priority must be low, medium or high")
		return
	}
	if in.Status != nil && !task.ValidStatus(*in.Status) {
		writeError(w, http.StatusBadRequest, "validation_error", "status must be pending, in-progress or completed")
		return
	}

	assignedTo, err := parseNullableID(req.AssignedTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "assigned_to must be a uuid or null")
		return
	}
	teamID, err := parseNullableID(req.TeamID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "team_id must be a uuid or null")
		return
	}
	in.AssignedTo = assignedTo
	in.TeamID = teamID

	if !p.Role.AtLeast(auth.RoleAdmin) {
		visible, err := h.tasks.IsVisibleTo(r.Context(), id, p.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load task")
			return
		}
		if !visible {
			writeError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		in = in.StatusOnly()
	}

	// Don't let an update strand a task with neither assignee nor team.
	if in.AssignedTo != nil || in.TeamID != nil {
		current, err := h.tasks.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, task.ErrNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "task not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load task")
			return
		}
		nextAssignee := current.AssignedTo
		if in.AssignedTo != nil {
			nextAssignee = *in.AssignedTo
		}
		nextTeam := current.TeamID
		if in.TeamID != nil {
			nextTeam = *in.TeamID
		}
		if nextAssignee == nil && nextTeam == nil {
			writeError(w, http.StatusBadRequest, "validation_error", "task needs an assignee or a team")
			return
		}
		if in.AssignedTo != nil && *in.AssignedTo != nil {
			if _, err := h.users.GetByID(r.Context(), **in.AssignedTo); err != nil {
				writeError(w, http.StatusBadRequest, "validation_error", "assignee does not exist")
				return
			}
		}
		if in.TeamID != nil && *in.TeamID != nil {
			ok, err := h.teams.ExistsActive(r.Context(), **in.TeamID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", "failed to validate team")
				return
			}
			if !ok {
				writeError(w, http.StatusBadRequest, "validation_error", "team does not exist")
				return
			}
		}
	}

	t, err := h.tasks.Update(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to update task")
		return
	}

	auditLog(r, "task.update", "task", t.ID.String())
	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/v1/tasks/{id}.
func (h *tasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "task not found")
		return
	}

	if err := h.tasks.Delete(r.Context(), id); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete task")
		return
	}

	auditLog(r, "task.delete", "task", id.String())
	w.WriteHeader(http.StatusNoContent)
}

// parseNullableID distinguishes an absent field (nil), an explicit null
// (clears the assignment) and a uuid string.
func parseNullableID(raw json.RawMessage) (**uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	var none *uuid.UUID
	if string(raw) == "null" {
		return &none, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	ptr := &id
	return &ptr, nil
}
