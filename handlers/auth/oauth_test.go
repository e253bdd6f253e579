package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"recipe-server/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newGitHubProvider serves the token and user endpoints GitHub would.
func newGitHubProvider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("code") != "good-code" {
			http.Error(w, `{"error":"bad_verification_code"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"gh-token","token_type":"bearer"}`))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gh-token" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":42,"login":"octocat"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestOAuth(t *testing.T, accounts *fakeAccounts, tokens *Manager) *OAuth {
	t.Helper()
	srv := newGitHubProvider(t)
	o := NewOAuth(context.Background(), config.AuthConfig{
		GitHub: config.OAuthClientConfig{ClientID: "id", ClientSecret: "secret", RedirectURL: "http://localhost/api/auth/oauth/callback"},
	}, accounts, tokens)
	require.True(t, o.Enabled())
	o.config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/login/oauth/authorize",
		TokenURL: srv.URL + "/login/oauth/access_token",
	}
	o.userInfoURL = srv.URL + "/user"
	return o
}

func TestOAuth_NotConfigured(t *testing.T) {
	o := NewOAuth(context.Background(), config.AuthConfig{}, newFakeAccounts(), NewManager("s"))
	assert.False(t, o.Enabled())

	rr := httptest.NewRecorder()
	o.HandleLogin(rr, httptest.NewRequest(http.MethodGet, "/api/auth/oauth/login", nil))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)

	rr = httptest.NewRecorder()
	o.HandleCallback(rr, httptest.NewRequest(http.MethodGet, "/api/auth/oauth/callback", nil))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestOAuth_GitHubFlow(t *testing.T) {
	accounts := newFakeAccounts()
	tokens := NewManager("test-secret")
	o := newTestOAuth(t, accounts, tokens)

	rr := httptest.NewRecorder()
	o.HandleLogin(rr, httptest.NewRequest(http.MethodGet, "/api/auth/oauth/login", nil))
	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	var state *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == stateCookieName {
			state = c
		}
	}
	require.NotNil(t, state)
	location, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, state.Value, location.Query().Get("state"))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/oauth/callback?code=good-code&state="+state.Value, nil)
	req.AddCookie(state)
	rr = httptest.NewRecorder()
	o.HandleCallback(rr, req)
	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)

	redirect, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/", redirect.Path)
	claims, err := tokens.Verify(redirect.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "octocat", claims.Username)

	require.Len(t, accounts.users, 1)
	assert.Equal(t, "github:42", accounts.users[0].Subject)
}

func TestOAuth_CallbackFailures(t *testing.T) {
	accounts := newFakeAccounts()
	o := newTestOAuth(t, accounts, NewManager("test-secret"))

	tests := []struct {
		name   string
		query  string
		cookie string
	}{
		{"missing state cookie", "?code=good-code&state=abc", ""},
		{"state mismatch", "?code=good-code&state=abc", "xyz"},
		{"missing code", "?state=abc", "abc"},
		{"rejected code", "?code=bad-code&state=abc", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/oauth/callback"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookieName, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			o.HandleCallback(rr, req)

			assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
			assert.Equal(t, "/", rr.Header().Get("Location"))
		})
	}
	assert.Empty(t, accounts.users)
}
