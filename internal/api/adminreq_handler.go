package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mwhited/taskflow/internal/adminreq"
	"github.com/mwhited/taskflow/internal/auth"
)

// minReasonLength is the shortest accepted justification for elevation.
const minReasonLength = 10

// adminRequestsHandler groups elevation request HTTP handlers.
type adminRequestsHandler struct {
	requests *adminreq.Store
}

func newAdminRequestsHandler(requests *adminreq.Store) *adminRequestsHandler {
	return &adminRequestsHandler{requests: requests}
}

// Create handles POST /api/v1/admin-requests.
func (h *adminRequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	var req struct {
		Reason string `json:"reason"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	req.Reason = strings.TrimSpace(req.Reason)
	if len(req.Reason) < minReasonLength {
		writeError(w, http.StatusBadRequest, "validation_error", "reason must be at least 10 characters")
		return
	}
	if p.Role.AtLeast(auth.RoleAdmin) {
		writeError(w, http.StatusBadRequest, "already_elevated", "account already holds an elevated role")
		return
	}

	created, err := h.requests.Create(r.Context(), p.ID, req.Reason)
	if err != nil {
		if errors.Is(err, adminreq.ErrPendingExists) {
			writeError(w, http.StatusConflict, "pending_exists", "a pending elevation request already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to file elevation request")
		return
	}

	auditLog(r, "adminrequest.create", "admin_request", created.ID.String())
	writeJSON(w, http.StatusCreated, created)
}

// List handles GET /api/v1/admin-requests.
func (h *adminRequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	requests, err := h.requests.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list elevation requests")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"requests": requests})
}

// Resolve handles PUT /api/v1/admin-requests.
func (h *adminRequestsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())

	var req struct {
		RequestID uuid.UUID `json:"request_id"`
		Action    string    `json:"action"`
		Notes     string    `json:"notes"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	if req.RequestID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "validation_error", "request_id is required")
		return
	}
	if req.Action != "approve" && req.Action != "reject" {
		writeError(w, http.StatusBadRequest, "validation_error", "action must be approve or reject")
		return
	}

	resolved, err := h.requests.Resolve(r.Context(), req.RequestID, p.ID, req.Action == "approve", req.Notes)
	if err != nil {
		if errors.Is(err, adminreq.ErrAlreadyResolved) {
			writeError(w, http.StatusConflict, "already_resolved", "elevation request is not pending")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve elevation request")
		return
	}

	auditLog(r, "adminrequest."+req.Action, "admin_request", resolved.ID.String(), "subject_user_id", resolved.UserID)
	writeJSON(w, http.StatusOK, resolved)
}
