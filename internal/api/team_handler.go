package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mwhited/taskflow/internal/auth"
	"github.com/mwhited/taskflow/internal/team"
	"github.com/mwhited/taskflow/internal/user"
)

// teamsHandler groups team HTTP handlers.
type teamsHandler struct {
	teams *team.Store
	users *user.Store
}

func newTeamsHandler(teams *team.Store, users *user.Store) *teamsHandler {
	return &teamsHandler{teams: teams, users: users}
}

// validateMembers checks that every id refers to a regular (non-elevated)
// user. Duplicate ids are collapsed first.
func (h *teamsHandler) validateMembers(r *http.Request, ids []uuid.UUID) ([]uuid.UUID, bool, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return unique, true, nil
	}

	count, err := h.users.CountMembers(r.Context(), unique)
	if err != nil {
		return nil, false, err
	}
	return unique, count == len(unique), nil
}

// List handles GET /api/v1/teams.
func (h *teamsHandler) List(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	teams, err := h.teams.ListVisible(r.Context(), p.ID, p.Role.AtLeast(auth.RoleAdmin))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list teams")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"teams": teams})
}

// Create handles POST /api/v1/teams.
func (h *teamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	var req struct {
		Name        string      `json:"name"`
		Description string      `json:"description"`
		MemberIDs   []uuid.UUID `json:"member_ids"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "name is required")
		return
	}

	members, ok, err := h.validateMembers(r, req.MemberIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to validate members")
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_error", "members must be existing regular users")
		return
	}

	t, err := h.teams.Create(r.Context(), team.CreateTeamInput{
		Name:        req.Name,
		Description: req.Description,
		MemberIDs:   members,
		CreatedBy:   p.ID,
	})
	if err != nil {
		if errors.Is(err, team.ErrNameTaken) {
			writeError(w, http.StatusConflict, "name_taken", "an active team with this name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create team")
		return
	}

	auditLog(r, "team.create", "team", t.ID.String())
	writeJSON(w, http.StatusCreated, t)
}

// Get handles GET /api/v1/teams/{id}. Regular users only see teams they
// belong to.
func (h *teamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "team not found")
		return
	}

	if !p.Role.AtLeast(auth.RoleAdmin) {
		member, err := h.teams.IsMember(r.Context(), id, p.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to load team")
			return
		}
		if !member {
			writeError(w, http.StatusNotFound, "not_found", "team not found")
			return
		}
	}

	t, err := h.teams.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, team.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "team not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load team")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update handles PUT /api/v1/teams/{id}.
func (h *teamsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "team not found")
		return
	}

	var req struct {
		Name        *string      `json:"name"`
		Description *string      `json:"description"`
		MemberIDs   *[]uuid.UUID `json:"member_ids"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "name cannot be empty")
			return
		}
		req.Name = &trimmed
	}

	in := team.UpdateTeamInput{Name: req.Name, Description: req.Description}
	if req.MemberIDs != nil {
		members, ok, err := h.validateMembers(r, *req.MemberIDs)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to validate members")
			return
		}
		if !ok {
			writeError(w, http.StatusBadRequest, "validation_error", "members must be existing regular users")
			return
		}
		in.MemberIDs = &members
	}

	t, err := h.teams.Update(r.Context(), id, in)
	if err != nil {
		switch {
		case errors.Is(err, team.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", "team not found")
		case errors.Is(err, team.ErrNameTaken):
			writeError(w, http.StatusConflict, "name_taken", "an active team with this name already exists")
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to update team")
		}
		return
	}

	auditLog(r, "team.update", "team", t.ID.String())
	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /api/v1/teams/{id}. Teams are deactivated, not
// removed, so historical task references stay intact.
func (h *teamsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "team not found")
		return
	}

	if err := h.teams.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, team.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "team not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete team")
		return
	}

	auditLog(r, "team.delete", "team", id.String())
	w.WriteHeader(http.StatusNoContent)
}
