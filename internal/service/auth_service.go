package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/tallyhq/tally-backend/internal/domain"
)

const (
	// sessionTokenBytes is the number of random bytes in a session token
	sessionTokenBytes = 32
	// minPasswordLength is the minimum accepted password length
	minPasswordLength = 8
)

// AuthService handles signup, login and session resolution
type AuthService struct {
	userRepo     domain.UserRepository
	sessionRepo  domain.SessionRepository
	provisioning *ProvisioningService
	sessionTTL   time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo domain.UserRepository, sessionRepo domain.SessionRepository, provisioning *ProvisioningService, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		provisioning: provisioning,
		sessionTTL:   sessionTTL,
	}
}

// SessionResult is an issued session: the raw token goes into the
// cookie, only its hash is stored.
type SessionResult struct {
	Token     string
	ExpiresAt time.Time
}

// Signup registers a user, seeds their default categories and opens a
// session.
func (s *AuthService) Signup(ctx context.Context, email, name, password string) (*domain.User, *SessionResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, nil, domain.ErrInvalidInput
	}
	if name == "" {
		return nil, nil, domain.ErrNameRequired
	}
	if len(name) > domain.MaxNameLength {
		return nil, nil, domain.ErrNameTooLong
	}
	if len(password) < minPasswordLength {
		return nil, nil, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userRepo.Create(ctx, &domain.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
	})
	if err != nil {
		if !errors.Is(err, domain.ErrEmailTaken) {
			log.Error().Err(err).Str("email", email).Msg("Failed to create user")
		}
		return nil, nil, err
	}

	// Seed the personal default categories. Provisioning is idempotent,
	// so a retried signup cannot duplicate them.
	if err := s.provisioning.EnsureDefaults(ctx, domain.PersonalScope(user.ID)); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("Failed to provision default categories")
		return nil, nil, err
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Msg("User signed up")
	return user, session, nil
}

// Login verifies credentials and opens a session
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *SessionResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// Same failure as a bad password so probes cannot tell
			// registered emails apart.
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	session, err := s.openSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	log.Info().Str("user_id", user.ID.String()).Msg("User logged in")
	return user, session, nil
}

// Logout deletes the session behind the given raw token
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.sessionRepo.Delete(ctx, hashToken(token))
}

// ValidateSession resolves a raw session token to a principal. When the
// session is past the halfway point of its lifetime it is renewed
// (rolling sessions) and the new expiry is returned so the cookie can
// be refreshed.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*domain.Principal, *time.Time, error) {
	session, user, err := s.sessionRepo.GetByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, nil, err
	}

	principal := &domain.Principal{UserID: user.ID, Email: user.Email}

	var renewedUntil *time.Time
	if time.Until(session.ExpiresAt) < s.sessionTTL/2 {
		newExpiry := time.Now().Add(s.sessionTTL)
		if err := s.sessionRepo.Renew(ctx, session.TokenHash, newExpiry); err == nil {
			renewedUntil = &newExpiry
		}
	}

	return principal, renewedUntil, nil
}

// GetUser retrieves the principal's user record
func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// DeleteAccount removes the user and their personal data. Team-scoped
// resources the user contributed to persist, owned by the team.
func (s *AuthService) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}
	log.Info().Str("user_id", userID.String()).Msg("Account deleted")
	return nil
}

// openSession issues a fresh session for the user
func (s *AuthService) openSession(ctx context.Context, userID uuid.UUID) (*SessionResult, error) {
	token, err := generateSecureToken(sessionTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	expiresAt := time.Now().Add(s.sessionTTL)
	err = s.sessionRepo.Create(ctx, &domain.Session{
		TokenHash: hashToken(token),
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	return &SessionResult{Token: token, ExpiresAt: expiresAt}, nil
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	// Use URL-safe base64 encoding without padding
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// hashToken creates a SHA-256 hash of the token
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", hash)
}
