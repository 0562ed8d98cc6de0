package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is a server-side login session referenced by an opaque cookie
// token. Only the SHA-256 hash of the token is stored.
type Session struct {
	TokenHash string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	// GetByTokenHash returns the session and its user. Expired sessions
	// are treated as absent.
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, *User, error)
	Renew(ctx context.Context, tokenHash string, expiresAt time.Time) error
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
