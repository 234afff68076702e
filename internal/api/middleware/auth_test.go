package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/diaflow/diaflow/internal/api/ctxkeys"
	pkgauth "github.com/diaflow/diaflow/pkg/auth"
)

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(ctxkeys.UserID).(string)
		wsID, _ := r.Context().Value(ctxkeys.WorkspaceID).(string)
		w.Header().Set("X-User", userID)
		w.Header().Set("X-Workspace", wsID)
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := pkgauth.GenerateJWT("user-1", "ws-1")
	if err != nil {
		t.Fatalf("GenerateJWT() error = %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/quota", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200", rec.Code)
	}
	if rec.Header().Get("X-User") != "user-1" || rec.Header().Get("X-Workspace") != "ws-1" {
		t.Errorf("claims not injected: user=%q ws=%q",
			rec.Header().Get("X-User"), rec.Header().Get("X-Workspace"))
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	req := httptest.NewRequest("GET", "/api/v1/quota", nil)
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rec.Code)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	req := httptest.NewRequest("GET", "/api/v1/quota", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	protectedEcho(t).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d; want 401", rec.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	t.Parallel()

	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"Bearer   abc  ", "abc"},
		{"bearer abc", ""},
		{"Basic abc", ""},
		{"Bearer ", ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		if got := extractBearerToken(req); got != tc.want {
			t.Errorf("extractBearerToken(%q) = %q; want %q", tc.header, got, tc.want)
		}
	}
}
