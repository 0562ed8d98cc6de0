package postgres

import (
	"context"
	"errors"

	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// SessionRepository implements domain.SessionRepository using PostgreSQL
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (token_hash, user_id, expires_at) VALUES ($1, $2, $3)`,
		session.TokenHash, session.UserID, session.ExpiresAt)
	return err
}

// GetByTokenHash loads a non-expired session together with its user
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, *domain.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT s.token_hash, s.user_id, s.expires_at, s.created_at,
		        u.id, u.email, u.name, u.password_hash, u.created_at, u.updated_at
		 FROM sessions s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.token_hash = $1 AND s.expires_at > now()`,
		tokenHash)

	var s domain.Session
	var u domain.User
	err := row.Scan(&s.TokenHash, &s.UserID, &s.ExpiresAt, &s.CreatedAt,
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, domain.ErrSessionNotFound
		}
		return nil, nil, err
	}
	return &s, &u, nil
}

// Renew extends a session's expiry
func (r *SessionRepository) Renew(ctx context.Context, tokenHash string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET expires_at = $2 WHERE token_hash = $1`,
		tokenHash, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Delete removes a session
func (r *SessionRepository) Delete(ctx context.Context, tokenHash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// DeleteExpired removes all expired sessions and reports how many
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
