package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"recipe-server/config"
	"recipe-server/core"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	stateCookieName   = "oauth_state"
	githubUserInfoURL = "https://api.github.com/user"
)

// OIDCClaims represents the claims from OIDC token
type OIDCClaims struct {
	Email             string `json:"email"`
	Name              string `json:"name"`
	PreferredUsername string `json:"preferred_username"`
	Sub               string `json:"sub"`
}

// OAuth signs users in through GitHub or an OIDC provider and hands back an application token.
type OAuth struct {
	accounts core.AccountService
	tokens   *Manager

	provider    string
	config      *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	userInfoURL string
}

// NewOAuth picks OIDC when it is configured, then GitHub. Without either, the login routes
// answer 501.
func NewOAuth(ctx context.Context, cfg config.AuthConfig, accounts core.AccountService, tokens *Manager) *OAuth {
	o := &OAuth{accounts: accounts, tokens: tokens, userInfoURL: githubUserInfoURL}

	switch {
	case cfg.OIDC.IssuerURL != "" && cfg.OIDC.Configured():
		logrus.Info("Initializing OIDC authentication provider.")
		provider, err := oidc.NewProvider(ctx, cfg.OIDC.IssuerURL)
		if err != nil {
			logrus.Errorf("Failed to create OIDC provider: %s", err.Error())
			return o
		}
		o.provider = "oidc"
		o.config = &oauth2.Config{
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.OIDC.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
			Endpoint:     provider.Endpoint(),
		}
		o.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.OIDC.ClientID})
	case cfg.GitHub.Configured():
		logrus.Info("Initializing GitHub authentication provider.")
		o.provider = "github"
		o.config = &oauth2.Config{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			RedirectURL:  cfg.GitHub.RedirectURL,
			Scopes:       []string{"read:user"},
			Endpoint:     github.Endpoint,
		}
	default:
		logrus.Debug("No OAuth provider configured.")
	}
	return o
}

// Enabled reports whether an external provider is available.
func (o *OAuth) Enabled() bool {
	return o.config != nil
}

func (o *OAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !o.Enabled() {
		http.Error(w, "Authentication not configured", http.StatusNotImplemented)
		return
	}

	stateBytes := make([]byte, 16)
	if _, err := rand.Read(stateBytes); err != nil {
		http.Error(w, "Failed to generate state for login", http.StatusInternalServerError)
		return
	}
	state := hex.EncodeToString(stateBytes)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, o.config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

func (o *OAuth) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if !o.Enabled() {
		http.Error(w, "Authentication not configured", http.StatusNotImplemented)
		return
	}
	log := logrus.WithField("provider", o.provider)

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.FormValue("state") {
		log.Warn("OAuth state mismatch")
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1})

	code := r.FormValue("code")
	if code == "" {
		log.Error("no code in callback")
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	token, err := o.config.Exchange(r.Context(), code)
	if err != nil {
		log.Errorf("failed to exchange token: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	var subject, login string
	if o.verifier != nil {
		subject, login, err = o.oidcIdentity(r.Context(), token)
	} else {
		subject, login, err = o.githubIdentity(r.Context(), token)
	}
	if err != nil {
		log.Error(err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	user, err := o.accounts.UpsertExternal(r.Context(), subject, login)
	if err != nil {
		log.Errorf("failed to store user: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	jwtToken, err := o.tokens.Issue(user)
	if err != nil {
		log.Errorf("failed to create JWT: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	http.Redirect(w, r, "/?token="+url.QueryEscape(jwtToken), http.StatusTemporaryRedirect)
}

func (o *OAuth) githubIdentity(ctx context.Context, token *oauth2.Token) (subject, login string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.userInfoURL, nil)
	if err != nil {
		return "", "", err
	}
	resp, err := o.config.Client(ctx, token).Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to get user from github: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to get user from github: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read github response body: %w", err)
	}

	var githubUser struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
	}
	if err := json.Unmarshal(body, &githubUser); err != nil {
		return "", "", fmt.Errorf("failed to unmarshal github user: %w", err)
	}
	if githubUser.ID == 0 {
		return "", "", fmt.Errorf("github user has no id")
	}
	return fmt.Sprintf("github:%d", githubUser.ID), githubUser.Login, nil
}

func (o *OAuth) oidcIdentity(ctx context.Context, token *oauth2.Token) (subject, login string, err error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return "", "", fmt.Errorf("no id_token in token response")
	}

	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", "", fmt.Errorf("failed to verify ID token: %w", err)
	}

	var claims OIDCClaims
	if err := idToken.Claims(&claims); err != nil {
		return "", "", fmt.Errorf("failed to extract claims from ID token: %w", err)
	}

	login = claims.PreferredUsername
	if login == "" {
		login = claims.Email
	}
	return "oidc:" + claims.Sub, login, nil
}
