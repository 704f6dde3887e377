package repository

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"taskflow/internal/model"
)

// ErrUserNotFound is returned when an account ID is unknown.
var ErrUserNotFound = errors.New("user not found")

// UserRepository stores registered accounts and the session table that binds
// a client session key (a chat ID) to an account.
type UserRepository struct {
	store  Store
	logger *log.Logger
}

func NewUserRepository(store Store, logger *log.Logger) *UserRepository {
	return &UserRepository{store: store, logger: logger}
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	users, _, err := loadJSON[[]model.User](ctx, r.store, r.logger, keyAccounts)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	users, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	users, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, nil
}

// Create appends a new account, assigning an ID when missing.
func (r *UserRepository) Create(ctx context.Context, user model.User) (*model.User, error) {
	users, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	users = append(users, user)
	if err := saveCollection(ctx, r.store, keyAccounts, users); err != nil {
		return nil, err
	}
	return &user, nil
}

// Save overwrites an existing account.
func (r *UserRepository) Save(ctx context.Context, user model.User) error {
	users, err := r.ListAll(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == user.ID {
			users[i] = user
			return saveCollection(ctx, r.store, keyAccounts, users)
		}
	}
	return ErrUserNotFound
}

// Delete removes an account and every session bound to it.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	users, err := r.ListAll(ctx)
	if err != nil {
		return err
	}
	kept := users[:0:0]
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(users) {
		return ErrUserNotFound
	}
	if err := saveCollection(ctx, r.store, keyAccounts, kept); err != nil {
		return err
	}

	sessions, err := r.Sessions(ctx)
	if err != nil {
		return err
	}
	changed := false
	for session, userID := range sessions {
		if userID == id {
			delete(sessions, session)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return saveJSON(ctx, r.store, keySessions, sessions)
}

// Sessions returns the session key to account ID table.
func (r *UserRepository) Sessions(ctx context.Context) (map[string]string, error) {
	sessions, _, err := loadJSON[map[string]string](ctx, r.store, r.logger, keySessions)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = make(map[string]string)
	}
	return sessions, nil
}

// SessionUser returns the account ID bound to session, or "" when logged out.
func (r *UserRepository) SessionUser(ctx context.Context, session string) (string, error) {
	sessions, err := r.Sessions(ctx)
	if err != nil {
		return "", err
	}
	return sessions[session], nil
}

func (r *UserRepository) OpenSession(ctx context.Context, session, userID string) error {
	sessions, err := r.Sessions(ctx)
	if err != nil {
		return err
	}
	sessions[session] = userID
	return saveJSON(ctx, r.store, keySessions, sessions)
}

func (r *UserRepository) CloseSession(ctx context.Context, session string) error {
	sessions, err := r.Sessions(ctx)
	if err != nil {
		return err
	}
	if _, ok := sessions[session]; !ok {
		return nil
	}
	delete(sessions, session)
	return saveJSON(ctx, r.store, keySessions, sessions)
}
