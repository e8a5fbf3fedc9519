package api

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mwhited/taskflow/internal/auth"
	"github.com/mwhited/taskflow/internal/user"
)

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	users        *user.Store
	tokens       *auth.TokenService
	adminSecret  string
	secureCookie bool
}

func newAuthHandler(users *user.Store, tokens *auth.TokenService, adminSecret string, secureCookie bool) *authHandler {
	return &authHandler{
		users:        users,
		tokens:       tokens,
		adminSecret:  adminSecret,
		secureCookie: secureCookie,
	}
}

func userResponse(u *user.User) map[string]interface{} {
	return map[string]interface{}{
		"id":       u.ID,
		"name":     u.Name,
		"email":    u.Email,
		"role":     u.Role,
		"is_owner": u.IsOwner,
	}
}

// Register handles POST /api/v1/auth/register.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		AdminSecret string `json:"admin_secret"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "name, email and password are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid email address")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "validation_error", "password must be at least 6 characters")
		return
	}

	// A matching admin secret grants the admin role at registration. A wrong
	// one is rejected outright rather than silently downgraded.
	role := auth.RoleUser
	if req.AdminSecret != "" {
		if h.adminSecret == "" || req.AdminSecret != h.adminSecret {
			writeError(w, http.StatusForbidden, "invalid_admin_secret", "admin secret does not match")
			return
		}
		role = auth.RoleAdmin
	}

	u, err := h.users.Create(r.Context(), user.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email_taken", "an account with this email already exists")
			return
		}
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "user store unavailable")
		return
	}

	token, err := h.tokens.Mint(u.ID, u.Role, u.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}
	auth.SetCookie(w, token, h.tokens.Expiry(), h.secureCookie)

	auditLog(r, "user.register", "user", u.ID.String(), "role", u.Role)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  userResponse(u),
	})
}

// Login handles POST /api/v1/auth/login.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "email and password are required")
		return
	}

	u, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
			return
		}
		// A down database must not look like bad credentials.
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", "user store unavailable")
		return
	}

	if !user.CheckPassword(u, req.Password) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid email or password")
		return
	}

	token, err := h.tokens.Mint(u.ID, u.Role, u.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}
	auth.SetCookie(w, token, h.tokens.Expiry(), h.secureCookie)

	auditLog(r, "user.login", "user", u.ID.String())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  userResponse(u),
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w, h.secureCookie)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       p.ID,
		"name":     p.Name,
		"email":    p.Email,
		"role":     p.Role,
		"is_owner": p.IsOwner,
	})
}
