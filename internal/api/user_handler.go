package api

import (
	"net/http"

	"github.com/mwhited/taskflow/internal/user"
)

// usersHandler groups user HTTP handlers.
type usersHandler struct {
	users *user.Store
}

func newUsersHandler(users *user.Store) *usersHandler {
	return &usersHandler{users: users}
}

// List handles GET /api/v1/users. It returns the regular users available
// for task and team assignment.
func (h *usersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListNonElevated(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list users")
		return
	}

	out := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		out = append(out, map[string]interface{}{
			"id":    u.ID,
			"name":  u.Name,
			"email": u.Email,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": out})
}
