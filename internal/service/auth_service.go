package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// Credentials carries signup and login input.
type Credentials struct {
	Email    string
	Password string
	Name     string
}

// ProfileUpdate lists the profile fields to change. Nil fields are kept.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// AuthService handles accounts and sessions. A session key identifies one
// client (a chat); at most one account is logged in per session.
type AuthService struct {
	users      *repository.UserRepository
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	locks      *UserLocks
	logger     *log.Logger
	now        func() time.Time
}

func NewAuthService(users *repository.UserRepository, tasks *repository.TaskRepository, categories *repository.CategoryRepository, locks *UserLocks, logger *log.Logger) *AuthService {
	return &AuthService{users: users, tasks: tasks, categories: categories, locks: locks, logger: logger, now: time.Now}
}

// Signup registers a new account, seeds its starter tasks and logs it in.
func (s *AuthService) Signup(ctx context.Context, session string, creds Credentials) (*model.Profile, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, ErrCredentialsRequired
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	name := strings.TrimSpace(creds.Name)
	if name == "" {
		name = defaultName(email)
	}

	user, err := s.users.Create(ctx, model.User{Email: email, Password: creds.Password, Name: name})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	unlock := s.locks.Lock(user.ID)
	defer unlock()

	starter := welcomeTasks(s.now())
	for i := range starter {
		starter[i].ID = uuid.NewString()
	}
	if err := s.tasks.Replace(ctx, user.ID, starter); err != nil {
		return nil, fmt.Errorf("seed tasks: %w", err)
	}

	if err := s.users.OpenSession(ctx, session, user.ID); err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	s.logger.Info("user registered", "user", user.ID)

	profile := user.Profile()
	return &profile, nil
}

func (s *AuthService) Login(ctx context.Context, session string, creds Credentials) (*model.Profile, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return nil, ErrCredentialsRequired
	}

	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNoAccounts
	}

	email := strings.TrimSpace(creds.Email)
	for _, u := range users {
		if u.Email != email || u.Password != creds.Password {
			continue
		}
		if err := s.users.OpenSession(ctx, session, u.ID); err != nil {
			return nil, fmt.Errorf("open session: %w", err)
		}
		s.logger.Info("user logged in", "user", u.ID)
		profile := u.Profile()
		return &profile, nil
	}
	return nil, ErrInvalidCredentials
}

func (s *AuthService) Logout(ctx context.Context, session string) error {
	return s.users.CloseSession(ctx, session)
}

// CurrentUser returns the account logged in on session, or nil.
func (s *AuthService) CurrentUser(ctx context.Context, session string) (*model.Profile, error) {
	user, err := s.sessionUser(ctx, session)
	if err != nil || user == nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, session string, update ProfileUpdate) (*model.Profile, error) {
	user, err := s.requireUser(ctx, session)
	if err != nil {
		return nil, err
	}
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		email := strings.TrimSpace(*update.Email)
		if email == "" {
			return nil, ErrCredentialsRequired
		}
		if email != user.Email {
			other, err := s.users.FindByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, ErrEmailTaken
			}
		}
		user.Email = email
	}
	if user.Name == "" {
		user.Name = defaultName(user.Email)
	}
	if err := s.users.Save(ctx, *user); err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

func (s *AuthService) UpdatePassword(ctx context.Context, session, current, next string) error {
	user, err := s.requireUser(ctx, session)
	if err != nil {
		return err
	}
	if user.Password != current {
		return ErrWrongPassword
	}
	if next == "" {
		return ErrPasswordRequired
	}
	user.Password = next
	return s.users.Save(ctx, *user)
}

// DeleteAccount removes the logged-in account together with its tasks,
// categories and sessions. The data goes first, so a failure leaves an
// account that can still log in and retry.
func (s *AuthService) DeleteAccount(ctx context.Context, session string) error {
	user, err := s.requireUser(ctx, session)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(user.ID)
	defer unlock()

	if err := s.tasks.Remove(ctx, user.ID); err != nil {
		return fmt.Errorf("remove tasks: %w", err)
	}
	if err := s.categories.Remove(ctx, user.ID); err != nil {
		return fmt.Errorf("remove categories: %w", err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.Info("account deleted", "user", user.ID)
	return nil
}

// Sessions returns the session key to account ID table.
func (s *AuthService) Sessions(ctx context.Context) (map[string]string, error) {
	return s.users.Sessions(ctx)
}

func (s *AuthService) sessionUser(ctx context.Context, session string) (*model.User, error) {
	userID, err := s.users.SessionUser(ctx, session)
	if err != nil || userID == "" {
		return nil, err
	}
	return s.users.FindByID(ctx, userID)
}

func (s *AuthService) requireUser(ctx context.Context, session string) (*model.User, error) {
	user, err := s.sessionUser(ctx, session)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotLoggedIn
	}
	return user, nil
}

// defaultName is the display name used when none is given: the local part
// of the email address.
func defaultName(email string) string {
	if local := strings.Split(email, "@")[0]; local != "" {
		return local
	}
	return "Utilisateur"
}
