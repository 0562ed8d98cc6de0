package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/testutil"
)

func newAuthFixture(ttl time.Duration) (*AuthService, *testutil.MockUserRepository, *testutil.MockSessionRepository, *testutil.MockCategoryRepository) {
	users := testutil.NewMockUserRepository()
	sessions := testutil.NewMockSessionRepository(users)
	categories := testutil.NewMockCategoryRepository()
	provisioning := NewProvisioningService(categories)
	return NewAuthService(users, sessions, provisioning, ttl), users, sessions, categories
}

func TestSignup_Success(t *testing.T) {
	authService, _, sessions, categories := newAuthFixture(24 * time.Hour)

	user, session, err := authService.Signup(context.Background(), "alice@example.com", "Alice", "correct-horse")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Expected email alice@example.com, got %s", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct-horse" {
		t.Error("Expected password to be stored hashed")
	}
	if session.Token == "" {
		t.Error("Expected a session token")
	}
	if len(sessions.Sessions) != 1 {
		t.Errorf("Expected 1 stored session, got %d", len(sessions.Sessions))
	}
	for hash := range sessions.Sessions {
		if hash == session.Token {
			t.Error("Expected stored session to hold the token hash, not the raw token")
		}
	}

	count, _ := categories.CountForOwner(context.Background(), domain.PersonalScope(user.ID))
	if count != int64(len(defaultCategorySeed)) {
		t.Errorf("Expected %d seeded categories, got %d", len(defaultCategorySeed), count)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	authService, _, _, _ := newAuthFixture(24 * time.Hour)

	if _, _, err := authService.Signup(context.Background(), "alice@example.com", "Alice", "correct-horse"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_, _, err := authService.Signup(context.Background(), "alice@example.com", "Other Alice", "battery-staple")
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestSignup_ShortPassword(t *testing.T) {
	authService, _, _, _ := newAuthFixture(24 * time.Hour)

	_, _, err := authService.Signup(context.Background(), "alice@example.com", "Alice", "short")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestSignup_InvalidEmail(t *testing.T) {
	authService, _, _, _ := newAuthFixture(24 * time.Hour)

	_, _, err := authService.Signup(context.Background(), "not-an-email", "Alice", "correct-horse")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	authService, _, _, _ := newAuthFixture(24 * time.Hour)

	signedUp, _, err := authService.Signup(context.Background(), "alice@example.com", "Alice", "correct-horse")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	user, session, err := authService.Login(context.Background(), "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if user.ID != signedUp.ID {
		t.Error("Expected login to resolve the signed up user")
	}
	if session.Token == "" {
		t.Error("Expected a session token")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	authService, _, _, _ := newAuthFixture(24 * time.Hour)

	if _, _, err := authService.Signup(context.Background(), "alice@example.com", "Alice", "correct-horse"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_, _, err := authService.Login(context.Background(), "alice@example.com", "wrong-password")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	authService, _, _, _ := newAuthFixture(24 * time.Hour)

	// Unknown emails report the same error as bad passwords so the
	// endpoint cannot be used to probe registered addresses.
	_, _, err := authService.Login(context.Background(), "nobody@example.com", "whatever-pass")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogout_InvalidatesSession(t *testing.T) {
	authService, _, _, _ := newAuthFixture(24 * time.Hour)

	_, session, err := authService.Signup(context.Background(), "alice@example.com", "Alice", "correct-horse")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if err := authService.Logout(context.Background(), session.Token); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	_, _, err = authService.ValidateSession(context.Background(), session.Token)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestValidateSession_Success(t *testing.T) {
	authService, _, _, _ := newAuthFixture(24 * time.Hour)

	user, session, err := authService.Signup(context.Background(), "alice@example.com", "Alice", "correct-horse")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	principal, renewed, err := authService.ValidateSession(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if principal.UserID != user.ID {
		t.Error("Expected principal to carry the session's user")
	}
	if principal.Email != "alice@example.com" {
		t.Errorf("Expected principal email alice@example.com, got %s", principal.Email)
	}
	if renewed != nil {
		t.Error("Expected no renewal for a fresh session")
	}
}

func TestValidateSession_RollingRenewal(t *testing.T) {
	authService, users, sessions, _ := newAuthFixture(24 * time.Hour)
	user := users.AddUser("alice@example.com", "Alice")

	// A session past the halfway point of its lifetime gets extended.
	token := "aging-session-token"
	oldExpiry := time.Now().Add(2 * time.Hour)
	sessions.Sessions[hashToken(token)] = &domain.Session{
		TokenHash: hashToken(token),
		UserID:    user.ID,
		ExpiresAt: oldExpiry,
	}

	_, renewed, err := authService.ValidateSession(context.Background(), token)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if renewed == nil {
		t.Fatal("Expected the session to be renewed")
	}
	if !renewed.After(oldExpiry) {
		t.Errorf("Expected renewed expiry after %v, got %v", oldExpiry, *renewed)
	}
	if !sessions.Sessions[hashToken(token)].ExpiresAt.Equal(*renewed) {
		t.Error("Expected the stored session to carry the renewed expiry")
	}
}

func TestValidateSession_Expired(t *testing.T) {
	authService, users, sessions, _ := newAuthFixture(24 * time.Hour)
	user := users.AddUser("alice@example.com", "Alice")

	token := "expired-session-token"
	sessions.Sessions[hashToken(token)] = &domain.Session{
		TokenHash: hashToken(token),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}

	_, _, err := authService.ValidateSession(context.Background(), token)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestGenerateSecureToken_Unique(t *testing.T) {
	a, err := generateSecureToken(32)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	b, err := generateSecureToken(32)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if a == b {
		t.Error("Expected distinct tokens")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("Expected URL-safe token, got %s", a)
	}
}
