package auth

import (
	"context"
	"fmt"
	"recipe-server/core"
	"sync"
)

// fakeAccounts is an in-memory core.AccountService with plain-text passwords.
type fakeAccounts struct {
	mu        sync.Mutex
	users     []core.User
	passwords map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{passwords: make(map[string]string)}
}

func (f *fakeAccounts) Register(ctx context.Context, username, password string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if username == "" || len(password) < 4 {
		return core.User{}, fmt.Errorf("%w: username and password required", core.ErrValidation)
	}
	for _, u := range f.users {
		if u.Username == username {
			return core.User{}, fmt.Errorf("%w: username already exists", core.ErrConflict)
		}
	}
	user := core.User{ID: fmt.Sprintf("u%d", len(f.users)+1), Username: username, Role: core.RoleUser}
	if len(f.users) == 0 {
		user.Role = core.RoleAdmin
	}
	f.users = append(f.users, user)
	f.passwords[user.ID] = password
	return user, nil
}

func (f *fakeAccounts) Authenticate(ctx context.Context, username, password string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username && f.passwords[u.ID] == password && password != "" {
			return u, nil
		}
	}
	return core.User{}, fmt.Errorf("%w: invalid credentials", core.ErrUnauthorized)
}

func (f *fakeAccounts) Get(ctx context.Context, id string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (f *fakeAccounts) UpsertExternal(ctx context.Context, subject, login string) (core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Subject == subject {
			return u, nil
		}
	}
	user := core.User{ID: fmt.Sprintf("u%d", len(f.users)+1), Username: login, Role: core.RoleUser, Subject: subject}
	f.users = append(f.users, user)
	return user, nil
}
