package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tallyhq/tally-backend/internal/domain"
)

func newDualAuth(sessionValidator SessionValidator, tokenAuth APITokenAuthenticator) *DualAuthMiddleware {
	return NewDualAuthMiddleware(
		NewSessionAuthMiddleware(sessionValidator, false),
		NewAPITokenAuthMiddleware(tokenAuth),
	)
}

func TestDualAuth_CookieFirst(t *testing.T) {
	e := echo.New()
	userID := uuid.New()

	sessionValidator := &MockSessionValidator{
		principal: &domain.Principal{UserID: userID, Email: "alice@example.com"},
	}
	// Token auth would fail if consulted
	tokenAuth := &MockAPITokenAuthenticator{err: domain.ErrAPITokenNotFound}
	dualAuth := newDualAuth(sessionValidator, tokenAuth)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "session-token"})
	req.Header.Set("Authorization", "Bearer tly_sometoken")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		principal, ok := GetPrincipal(c)
		if !ok {
			t.Fatal("Expected principal in context")
		}
		if principal.UserID != userID {
			t.Errorf("Expected user ID %s, got %s", userID, principal.UserID)
		}
		if IsAPITokenAuth(c) {
			t.Error("Expected session authentication to win over the bearer token")
		}
		return c.String(http.StatusOK, "OK")
	}

	err := dualAuth.Authenticate()(handler)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestDualAuth_FallsBackToBearerToken(t *testing.T) {
	e := echo.New()
	userID := uuid.New()
	tokenID := uuid.New()

	sessionValidator := &MockSessionValidator{err: domain.ErrSessionNotFound}
	tokenAuth := &MockAPITokenAuthenticator{
		principal: &domain.Principal{UserID: userID, Email: "alice@example.com"},
		tokenID:   tokenID,
	}
	dualAuth := newDualAuth(sessionValidator, tokenAuth)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-session"})
	req.Header.Set("Authorization", "Bearer tly_validtoken")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		principal, ok := GetPrincipal(c)
		if !ok {
			t.Fatal("Expected principal in context")
		}
		if principal.UserID != userID {
			t.Errorf("Expected user ID %s, got %s", userID, principal.UserID)
		}
		if !IsAPITokenAuth(c) {
			t.Error("Expected IsAPITokenAuth after bearer fallback")
		}
		if GetAPITokenID(c) != tokenID {
			t.Errorf("Expected token ID %s, got %s", tokenID, GetAPITokenID(c))
		}
		return c.String(http.StatusOK, "OK")
	}

	err := dualAuth.Authenticate()(handler)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestDualAuth_MissingCredentials(t *testing.T) {
	e := echo.New()
	dualAuth := newDualAuth(&MockSessionValidator{err: domain.ErrSessionNotFound}, &MockAPITokenAuthenticator{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	}

	err := dualAuth.Authenticate()(handler)(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Missing credentials") {
		t.Errorf("Expected missing credentials detail, got %s", rec.Body.String())
	}
}

func TestDualAuth_InvalidCookieAndNoBearer(t *testing.T) {
	e := echo.New()
	dualAuth := newDualAuth(&MockSessionValidator{err: domain.ErrSessionNotFound}, &MockAPITokenAuthenticator{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale-session"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	}

	err := dualAuth.Authenticate()(handler)(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestDualAuth_SessionOnly_RejectsBearerToken(t *testing.T) {
	e := echo.New()
	tokenAuth := &MockAPITokenAuthenticator{
		principal: &domain.Principal{UserID: uuid.New(), Email: "alice@example.com"},
		tokenID:   uuid.New(),
	}
	dualAuth := newDualAuth(&MockSessionValidator{err: domain.ErrSessionNotFound}, tokenAuth)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/api-tokens", nil)
	req.Header.Set("Authorization", "Bearer tly_validtoken")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		t.Error("Handler should not be called")
		return nil
	}

	err := dualAuth.SessionOnly()(handler)(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestDualAuth_RenewalRefreshesCookie(t *testing.T) {
	e := echo.New()
	renewedUntil := time.Now().Add(24 * time.Hour)
	sessionValidator := &MockSessionValidator{
		principal: &domain.Principal{UserID: uuid.New(), Email: "alice@example.com"},
		renewal:   &renewedUntil,
	}
	dualAuth := newDualAuth(sessionValidator, &MockAPITokenAuthenticator{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/expenses", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "session-token"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	}

	err := dualAuth.Authenticate()(handler)(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	refreshed := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == SessionCookieName && cookie.Value == "session-token" {
			refreshed = true
		}
	}
	if !refreshed {
		t.Error("Expected the session cookie to be refreshed on renewal")
	}
}
