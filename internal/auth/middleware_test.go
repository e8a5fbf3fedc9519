package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mapLookup is a PrincipalLookup backed by an in-memory map.
type mapLookup struct {
	principals map[uuid.UUID]*Principal
	err        error
}

func (l *mapLookup) LookupPrincipal(_ context.Context, id uuid.UUID) (*Principal, error) {
	if l.err != nil {
		return nil, l.err
	}
	p, ok := l.principals[id]
	if !ok {
		return nil, ErrPrincipalNotFound
	}
	return p, nil
}

func okHandler(t *testing.T, gotPrincipal **Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotPrincipal = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticateCookie(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	id := uuid.New()
	lookup := &mapLookup{principals: map[uuid.UUID]*Principal{
		id: {ID: id, Email: "a@b.c", Role: RoleUser},
	}}
	mw := NewMiddleware(svc, lookup)

	token, _ := svc.Mint(id, RoleUser, "a")

	var got *Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	rec := httptest.NewRecorder()

	mw.Authenticate(okHandler(t, &got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.ID != id {
		t.Fatalf("principal not injected")
	}
}

func TestAuthenticateBearer(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	id := uuid.New()
	lookup := &mapLookup{principals: map[uuid.UUID]*Principal{
		id: {ID: id, Role: RoleUser},
	}}
	mw := NewMiddleware(svc, lookup)

	token, _ := svc.Mint(id, RoleUser, "a")

	var got *Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw.Authenticate(okHandler(t, &got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthenticateCookieBeatsBearer(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	cookieID := uuid.New()
	lookup := &mapLookup{principals: map[uuid.UUID]*Principal{
		cookieID: {ID: cookieID, Role: RoleUser},
	}}
	mw := NewMiddleware(svc, lookup)

	cookieToken, _ := svc.Mint(cookieID, RoleUser, "cookie")
	bearerToken, _ := svc.Mint(uuid.New(), RoleUser, "bearer")

	var got *Principal
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: cookieToken})
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	rec := httptest.NewRecorder()

	mw.Authenticate(okHandler(t, &got)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.ID != cookieID {
		t.Fatal("cookie credential should take priority over bearer header")
	}
}

func TestAuthenticateFailures(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)
	knownID := uuid.New()

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		lookup     *mapLookup
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no credential",
			setup:      func(r *http.Request) {},
			lookup:     &mapLookup{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "no_credential",
		},
		{
			name: "garbage token",
			setup: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: CookieName, Value: "garbage"})
			},
			lookup:     &mapLookup{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "invalid_credential",
		},
		{
			name: "deleted user",
			setup: func(r *http.Request) {
				token, _ := svc.Mint(uuid.New(), RoleUser, "ghost")
				r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
			},
			lookup:     &mapLookup{},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "principal_not_found",
		},
		{
			name: "store down",
			setup: func(r *http.Request) {
				token, _ := svc.Mint(knownID, RoleUser, "x")
				r.AddCookie(&http.Cookie{Name: CookieName, Value: token})
			},
			lookup:     &mapLookup{err: errors.New("connection refused")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "store_unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewMiddleware(svc, tt.lookup)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			var got *Principal
			mw.Authenticate(okHandler(t, &got)).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if !strings.Contains(rec.Body.String(), tt.wantCode) {
				t.Errorf("body %q does not mention %q", rec.Body.String(), tt.wantCode)
			}
			if got != nil {
				t.Error("handler should not have run")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		principal  *Principal
		min        Role
		wantStatus int
	}{
		{"user passes user", &Principal{Role: RoleUser}, RoleUser, http.StatusOK},
		{"user blocked from admin", &Principal{Role: RoleUser}, RoleAdmin, http.StatusForbidden},
		{"admin passes admin", &Principal{Role: RoleAdmin}, RoleAdmin, http.StatusOK},
		{"admin blocked from owner", &Principal{Role: RoleAdmin}, RoleOwner, http.StatusForbidden},
		{"owner passes owner", &Principal{Role: RoleOwner, IsOwner: true}, RoleOwner, http.StatusOK},
		{"owner role without flag blocked", &Principal{Role: RoleOwner}, RoleOwner, http.StatusForbidden},
		{"no principal", nil, RoleUser, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(tt.min)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.principal != nil {
				req = req.WithContext(ContextWithPrincipal(req.Context(), tt.principal))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
