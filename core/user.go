package core

import "context"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type (
	// User is an account allowed to obtain tokens. Subject is set for users created through an
	// external OAuth2 or OIDC login.
	User struct {
		ID           string `json:"_id"`
		Username     string `json:"username"`
		PasswordHash string `json:"passwordHash,omitempty"`
		Role         string `json:"role"`
		Subject      string `json:"subject,omitempty"`
	}

	AccountService interface {
		Register(ctx context.Context, username, password string) (User, error)
		Authenticate(ctx context.Context, username, password string) (User, error)
		Get(ctx context.Context, id string) (User, error)
		UpsertExternal(ctx context.Context, subject, login string) (User, error)
	}
)

func (u User) RecordID() string { return u.ID }
