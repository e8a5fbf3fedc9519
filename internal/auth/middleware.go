package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Principal is the authenticated user attached to a request. It is always
// re-fetched from the store during authentication; nothing here comes from
// token claims.
type Principal struct {
	ID      uuid.UUID
	Email   string
	Name    string
	Role    Role
	IsOwner bool
}

// ErrPrincipalNotFound is returned by a PrincipalLookup when the token's
// subject no longer exists in the store.
var ErrPrincipalNotFound = errors.New("principal not found")

// PrincipalLookup resolves a token subject to a live user record.
type PrincipalLookup interface {
	LookupPrincipal(ctx context.Context, id uuid.UUID) (*Principal, error)
}

// Metrics is the optional hook for counting authentication outcomes.
type Metrics interface {
	IncAuthSuccess(authType string)
	IncAuthFailure(authType string)
}

type contextKey int

const principalContextKey contextKey = iota

// ContextWithPrincipal returns a new context carrying the given principal.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext extracts the principal from the context, or nil if not
// present.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}

// Middleware authenticates requests and enforces role requirements.
type Middleware struct {
	tokens  *TokenService
	lookup  PrincipalLookup
	metrics Metrics
}

func NewMiddleware(tokens *TokenService, lookup PrincipalLookup) *Middleware {
	return &Middleware{tokens: tokens, lookup: lookup}
}

// SetMetrics sets the optional auth metrics recorder.
func (m *Middleware) SetMetrics(metrics Metrics) {
	m.metrics = metrics
}

// Authenticate resolves the request credential to a principal and injects it
// into the context. The cookie is preferred; the bearer header is kept for
// older clients. Token claims are only used for the subject id; the full
// user record is re-fetched so role changes take effect without forcing a
// re-login.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, authType := extractCredential(r)
		if credential == "" {
			m.fail(authType)
			writeAuthError(w, http.StatusUnauthorized, "no_credential", "authentication required")
			return
		}

		claims, err := m.tokens.Verify(credential)
		if err != nil {
			m.fail(authType)
			writeAuthError(w, http.StatusUnauthorized, "invalid_credential", "invalid or expired token")
			return
		}

		principal, err := m.lookup.LookupPrincipal(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrPrincipalNotFound) {
				m.fail(authType)
				writeAuthError(w, http.StatusUnauthorized, "principal_not_found", "user no longer exists")
				return
			}
			// Store failure is never silently degraded to a mock identity;
			// the request fails fast.
			writeAuthError(w, http.StatusServiceUnavailable, "store_unavailable", "authentication store unavailable")
			return
		}

		if m.metrics != nil {
			m.metrics.IncAuthSuccess(authType)
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireRole gates a route on a minimum role. Must be mounted after
// Authenticate. The owner check additionally requires the is_owner flag.
func RequireRole(min Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			if p == nil {
				writeAuthError(w, http.StatusUnauthorized, "no_credential", "authentication required")
				return
			}
			if !p.Role.AtLeast(min) || (min == RoleOwner && !p.IsOwner) {
				writeAuthError(w, http.StatusForbidden, "insufficient_role", string(min)+" access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) fail(authType string) {
	if m.metrics != nil {
		m.metrics.IncAuthFailure(authType)
	}
}

// extractCredential returns the token and which transport carried it
// ("cookie" or "bearer"). The cookie takes priority.
func extractCredential(r *http.Request) (string, string) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, "cookie"
	}

	h := r.Header.Get("Authorization")
	if h == "" {
		return "", "none"
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "bearer"
	}
	return parts[1], "bearer"
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeAuthError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{Code: code, Message: message},
	})
}
