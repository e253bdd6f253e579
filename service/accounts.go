package service

import (
	"context"
	"fmt"
	"recipe-server/core"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Username, validation.Required, validation.RuneLength(1, 64)),
		validation.Field(&c.Password, validation.Required, validation.RuneLength(4, 128)),
	)
}

type AccountService struct {
	store core.CollectionStore
	cost  int
}

func NewAccountService(store core.CollectionStore) *AccountService {
	return &AccountService{store: store, cost: bcrypt.DefaultCost}
}

// Register creates a password account. The first account ever created becomes an admin.
func (s *AccountService) Register(ctx context.Context, username, password string) (core.User, error) {
	in := credentials{Username: strings.TrimSpace(username), Password: password}
	if err := in.Validate(); err != nil {
		return core.User{}, invalid(err)
	}

	users, err := core.LoadCollection[core.User](ctx, s.store, core.Users)
	if err != nil {
		return core.User{}, err
	}
	if findUser(users, func(u core.User) bool { return u.Username == in.Username }) >= 0 {
		return core.User{}, fmt.Errorf("%w: username already exists", core.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user := core.User{
		ID:           core.NewID(),
		Username:     in.Username,
		PasswordHash: string(hash),
		Role:         core.RoleUser,
	}
	if len(users) == 0 {
		user.Role = core.RoleAdmin
	}

	users = append(users, user)
	if err := core.SaveCollection(ctx, s.store, core.Users, users); err != nil {
		return core.User{}, err
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
	return user, nil
}

func (s *AccountService) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	in := credentials{Username: strings.TrimSpace(username), Password: password}
	if in.Username == "" || in.Password == "" {
		return core.User{}, fmt.Errorf("%w: username and password required", core.ErrValidation)
	}

	users, err := core.LoadCollection[core.User](ctx, s.store, core.Users)
	if err != nil {
		return core.User{}, err
	}
	i := findUser(users, func(u core.User) bool { return u.Username == in.Username && u.PasswordHash != "" })
	if i < 0 {
		return core.User{}, fmt.Errorf("%w: invalid credentials", core.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(users[i].PasswordHash), []byte(in.Password)); err != nil {
		logrus.WithField("user_id", users[i].ID).Warn("Password mismatch")
		return core.User{}, fmt.Errorf("%w: invalid credentials", core.ErrUnauthorized)
	}
	return users[i], nil
}

func (s *AccountService) Get(ctx context.Context, id string) (core.User, error) {
	users, err := core.LoadCollection[core.User](ctx, s.store, core.Users)
	if err != nil {
		return core.User{}, err
	}
	if i := findUser(users, func(u core.User) bool { return u.ID == id }); i >= 0 {
		return users[i], nil
	}
	return core.User{}, fmt.Errorf("%w: user %s", core.ErrNotFound, id)
}

// UpsertExternal returns the account linked to an OAuth2/OIDC subject, creating it on first login.
func (s *AccountService) UpsertExternal(ctx context.Context, subject, login string) (core.User, error) {
	if subject == "" {
		return core.User{}, fmt.Errorf("%w: subject is required", core.ErrValidation)
	}

	users, err := core.LoadCollection[core.User](ctx, s.store, core.Users)
	if err != nil {
		return core.User{}, err
	}
	if i := findUser(users, func(u core.User) bool { return u.Subject == subject }); i >= 0 {
		return users[i], nil
	}

	if login == "" {
		login = subject
	}
	user := core.User{
		ID:       core.NewID(),
		Username: uniqueUsername(users, login),
		Role:     core.RoleUser,
		Subject:  subject,
	}
	if len(users) == 0 {
		user.Role = core.RoleAdmin
	}
	users = append(users, user)
	if err := core.SaveCollection(ctx, s.store, core.Users, users); err != nil {
		return core.User{}, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"subject":  subject,
		"username": user.Username,
	}).Info("External user created")
	return user, nil
}

// uniqueUsername returns login, or login with the first free "-N" suffix when an account already
// uses it.
func uniqueUsername(users []core.User, login string) string {
	taken := func(name string) bool {
		return findUser(users, func(u core.User) bool { return u.Username == name }) >= 0
	}
	name := login
	for n := 2; taken(name); n++ {
		name = fmt.Sprintf("%s-%d", login, n)
	}
	return name
}

func findUser(users []core.User, match func(core.User) bool) int {
	for i, u := range users {
		if match(u) {
			return i
		}
	}
	return -1
}
