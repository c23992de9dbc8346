// Package session keeps the mapping from session tokens to logged-in users.
//
// Sessions are created on login with an absolute expiry and removed on
// logout. Stores never return an expired session.
package session

import (
	"context"
	"errors"

	"task-manager/internal/models"
)

var (
	// ErrNotFound is returned when a token has no live session.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned by Create for a session whose expiry has passed.
	ErrExpired = errors.New("session already expired")
)

// Store persists sessions keyed by their token. Implementations must be safe
// for concurrent use.
type Store interface {
	Create(ctx context.Context, s *models.Session) error
	Get(ctx context.Context, token string) (*models.Session, error)
	// Delete removes the session if present. Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}
