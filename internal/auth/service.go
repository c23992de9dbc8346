package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"task-manager/internal/models"
	"task-manager/internal/session"
	"task-manager/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 4

	msgRequired        = "Los campos usuario y contraseña son obligatorios"
	msgUsernameShort   = "El nombre de usuario debe tener al menos 3 caracteres"
	msgPasswordShort   = "La contraseña debe tener al menos 4 caracteres"
	msgPasswordTooLong = "La contraseña no puede superar los 72 bytes"
)

// UserStore is the subset of the credential store used by Service.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// Service orchestrates registration, login and logout.
type Service struct {
	users    UserStore
	sessions session.Store
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates a Service issuing sessions that live for ttl.
func NewService(users UserStore, sessions session.Store, ttl time.Duration) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Register validates the credentials, hashes the password and stores a new user.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, invalid(msgRequired)
	}
	if utf8.RuneCountInString(strings.TrimSpace(username)) < MinUsernameLength {
		return nil, invalid(msgUsernameShort)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, invalid(msgPasswordShort)
	}

	hash, err := HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, invalid(msgPasswordTooLong)
	} else if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, hash)
	if errors.Is(err, storage.ErrDuplicateUsername) {
		return nil, fmt.Errorf("%w: %w", ErrConflict, err)
	} else if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// EnsureUser registers username unless it already exists. It reports whether
// a new user was created.
func (s *Service) EnsureUser(ctx context.Context, username, password string) (bool, error) {
	_, err := s.Register(ctx, username, password)
	if errors.Is(err, ErrConflict) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// Login verifies the credentials and opens a new session. An unknown user and
// a wrong password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, *models.Session, error) {
	if username == "" || password == "" {
		return nil, nil, invalid(msgRequired)
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		// keep the response time close to the wrong password case
		CheckPassword(password, dummyHash())
		return nil, nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return nil, nil, fmt.Errorf("generate session token: %w", err)
	}

	now := s.now()
	sess := &models.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return user, sess, nil
}

// Logout drops the session bound to token. Unknown or empty tokens are fine.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate returns the live session for token. A session whose user is
// no longer in the store is dropped.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	sess, err := s.sessions.Get(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrNoSession
	} else if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	_, err = s.users.GetUserByID(ctx, sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		if err := s.sessions.Delete(ctx, token); err != nil {
			return nil, fmt.Errorf("delete session: %w", err)
		}
		return nil, ErrNoSession
	} else if err != nil {
		return nil, fmt.Errorf("find session user: %w", err)
	}
	return sess, nil
}

var dummyHash = sync.OnceValue(func() string {
	hash, err := HashPassword("not-a-real-password")
	if err != nil {
		panic(err)
	}
	return hash
})
