package middleware

import (
	"net/http"
	"net/http/httptest"
	"recipe-server/core"
	"recipe-server/handlers/auth"
	"testing"
)

func newProtectedHandler(t *testing.T, verifier TokenVerifier) (http.Handler, *string) {
	t.Helper()
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = OwnerID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	return AuthJWT(verifier)(next), &seen
}

func TestAuthJWT_ValidToken(t *testing.T) {
	tokens := auth.NewManager("test-secret")
	token, err := tokens.Issue(core.User{ID: "u1", Username: "alice", Role: core.RoleUser})
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	h, seen := newProtectedHandler(t, tokens)
	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}
	if *seen != "u1" {
		t.Errorf("OwnerID = %q, want %q", *seen, "u1")
	}
}

func TestAuthJWT_Rejects(t *testing.T) {
	tokens := auth.NewManager("test-secret")
	foreign, err := auth.NewManager("other").Issue(core.User{ID: "u1"})
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"missing token", "Bearer"},
		{"garbage token", "Bearer not-a-jwt"},
		{"foreign token", "Bearer " + foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, seen := newProtectedHandler(t, tokens)
			req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
			}
			if *seen != "" {
				t.Error("request reached the handler")
			}
		})
	}
}

func TestOwnerID_Unfiltered(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := OwnerID(req.Context()); got != "" {
		t.Errorf("OwnerID = %q, want empty", got)
	}
}
