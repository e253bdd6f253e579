package auth

import (
	"net/http"
	"recipe-server/core"
	"recipe-server/handlers/api"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserView is the public part of a core.User.
type UserView struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type tokenResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

func viewOf(u core.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Role: u.Role}
}

func HandleRegister(accounts core.AccountService, tokens *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			api.Error(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}

		user, err := accounts.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		respondWithToken(w, r, tokens, user, http.StatusCreated)
	}
}

func HandleLogin(accounts core.AccountService, tokens *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := render.DecodeJSON(r.Body, &req); err != nil {
			api.Error(w, r, http.StatusBadRequest, "invalid JSON body")
			return
		}

		user, err := accounts.Authenticate(r.Context(), req.Username, req.Password)
		if err != nil {
			api.WriteError(w, r, err)
			return
		}
		respondWithToken(w, r, tokens, user, http.StatusOK)
	}
}

// HandleMe echoes the verified claims. It must run behind middleware.AuthJWT.
func HandleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := FromContext(r.Context())
		if !ok {
			api.Error(w, r, http.StatusUnauthorized, "not authenticated")
			return
		}
		render.JSON(w, r, map[string]UserView{"user": {
			ID:       claims.Subject,
			Username: claims.Username,
			Role:     claims.Role,
		}})
	}
}

func respondWithToken(w http.ResponseWriter, r *http.Request, tokens *Manager, user core.User, status int) {
	token, err := tokens.Issue(user)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to issue token")
		api.Error(w, r, http.StatusInternalServerError, "failed to issue token")
		return
	}
	render.Status(r, status)
	render.JSON(w, r, tokenResponse{Token: token, User: viewOf(user)})
}
