package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tallyhq/tally-backend/internal/domain"
)

// MockSessionValidator implements SessionValidator for testing
type MockSessionValidator struct {
	principal *domain.Principal
	renewal   *time.Time
	err       error
	seenToken string
}

func (m *MockSessionValidator) ValidateSession(ctx context.Context, token string) (*domain.Principal, *time.Time, error) {
	m.seenToken = token
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.principal, m.renewal, nil
}

func sessionRequest(e *echo.Echo, token string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestSessionAuth_Success(t *testing.T) {
	e := echo.New()
	userID := uuid.New()

	validator := &MockSessionValidator{
		principal: &domain.Principal{UserID: userID, Email: "alice@example.com"},
	}
	middleware := NewSessionAuthMiddleware(validator, false)

	c, rec := sessionRequest(e, "session-token-abc")

	handlerCalled := false
	handler := func(c echo.Context) error {
		handlerCalled = true
		principal, ok := GetPrincipal(c)
		if !ok {
			t.Fatal("Expected principal in context")
		}
		if principal.UserID != userID {
			t.Errorf("Expected user ID %s, got %s", userID, principal.UserID)
		}
		if GetSessionToken(c) != "session-token-abc" {
			t.Errorf("Expected session token in context, got %q", GetSessionToken(c))
		}
		if IsAPITokenAuth(c) {
			t.Error("Expected IsAPITokenAuth to be false for session auth")
		}
		return c.String(http.StatusOK, "OK")
	}

	err := middleware.Authenticate()(handler)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !handlerCalled {
		t.Error("Handler was not called")
	}
	if validator.seenToken != "session-token-abc" {
		t.Errorf("Expected validator to see cookie value, got %q", validator.seenToken)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestSessionAuth_MissingCookie(t *testing.T) {
	e := echo.New()
	middleware := NewSessionAuthMiddleware(&MockSessionValidator{}, false)

	c, rec := sessionRequest(e, "")

	handler := func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	}

	err := middleware.Authenticate()(handler)(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestSessionAuth_InvalidSessionClearsCookie(t *testing.T) {
	e := echo.New()
	validator := &MockSessionValidator{err: domain.ErrSessionNotFound}
	middleware := NewSessionAuthMiddleware(validator, false)

	c, rec := sessionRequest(e, "stale-token")

	handler := func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	}

	err := middleware.Authenticate()(handler)(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}

	cleared := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName && cookie.Value == "" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("Expected the session cookie to be cleared")
	}
}

func TestSessionAuth_RenewalRefreshesCookie(t *testing.T) {
	e := echo.New()
	renewedUntil := time.Now().Add(24 * time.Hour)
	validator := &MockSessionValidator{
		principal: &domain.Principal{UserID: uuid.New(), Email: "alice@example.com"},
		renewal:   &renewedUntil,
	}
	middleware := NewSessionAuthMiddleware(validator, false)

	c, rec := sessionRequest(e, "session-token-abc")

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	err := middleware.Authenticate()(handler)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	refreshed := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName && cookie.Value == "session-token-abc" {
			refreshed = true
			if !cookie.HttpOnly {
				t.Error("Expected session cookie to be HttpOnly")
			}
			if cookie.Expires.Before(time.Now().Add(23 * time.Hour)) {
				t.Errorf("Expected refreshed expiry, got %v", cookie.Expires)
			}
		}
	}
	if !refreshed {
		t.Error("Expected the session cookie to be refreshed on renewal")
	}
}

func TestSessionAuth_NoRenewalLeavesCookieAlone(t *testing.T) {
	e := echo.New()
	validator := &MockSessionValidator{
		principal: &domain.Principal{UserID: uuid.New(), Email: "alice@example.com"},
	}
	middleware := NewSessionAuthMiddleware(validator, false)

	c, rec := sessionRequest(e, "session-token-abc")

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	err := middleware.Authenticate()(handler)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Errorf("Expected no Set-Cookie on a fresh session, got %d cookies", len(rec.Result().Cookies()))
	}
}

func TestGetPrincipal_Missing(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	if _, ok := GetPrincipal(c); ok {
		t.Error("Expected no principal on an unauthenticated context")
	}
	if GetSessionToken(c) != "" {
		t.Error("Expected empty session token on an unauthenticated context")
	}
}
