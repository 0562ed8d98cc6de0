package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/service"
	"github.com/tallyhq/tally-backend/internal/testutil"
)

func newAuthHandler() (*AuthHandler, *service.AuthService, *testutil.MockUserRepository) {
	users := testutil.NewMockUserRepository()
	sessions := testutil.NewMockSessionRepository(users)
	categories := testutil.NewMockCategoryRepository()
	provisioning := service.NewProvisioningService(categories)
	authService := service.NewAuthService(users, sessions, provisioning, 24*time.Hour)
	return NewAuthHandler(authService, false), authService, users
}

// setPrincipal installs an authenticated principal on the context the
// way the session middleware does.
func setPrincipal(c echo.Context, principal domain.Principal) {
	ctx := context.WithValue(c.Request().Context(), middleware.PrincipalKey, principal)
	c.SetRequest(c.Request().WithContext(ctx))
}

func setSessionToken(c echo.Context, token string) {
	ctx := context.WithValue(c.Request().Context(), middleware.SessionTokenKey, token)
	c.SetRequest(c.Request().WithContext(ctx))
}

func jsonRequest(e *echo.Echo, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestSignup_Success(t *testing.T) {
	e := echo.New()
	handler, _, _ := newAuthHandler()

	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/auth/signup",
		`{"email":"alice@example.com","name":"Alice","password":"correct horse"}`)

	err := handler.Signup(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", rec.Code)
	}

	var response UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.Email != "alice@example.com" {
		t.Errorf("Expected email 'alice@example.com', got %s", response.Email)
	}

	cookie := sessionCookie(t, rec)
	if cookie == nil {
		t.Fatal("Expected a session cookie")
	}
	if cookie.Value == "" {
		t.Error("Expected a non-empty session token")
	}
	if !cookie.HttpOnly {
		t.Error("Expected the session cookie to be HttpOnly")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	e := echo.New()
	handler, _, users := newAuthHandler()
	users.AddUser("alice@example.com", "Alice")

	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/auth/signup",
		`{"email":"alice@example.com","name":"Other Alice","password":"correct horse"}`)

	err := handler.Signup(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rec.Code)
	}
}

func TestSignup_ShortPassword(t *testing.T) {
	e := echo.New()
	handler, _, _ := newAuthHandler()

	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/auth/signup",
		`{"email":"alice@example.com","name":"Alice","password":"short"}`)

	err := handler.Signup(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	var problem ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if problem.Type != ErrorTypeValidation {
		t.Errorf("Expected validation problem type, got %s", problem.Type)
	}
}

func TestLogin_Success(t *testing.T) {
	e := echo.New()
	handler, authService, _ := newAuthHandler()

	_, _, err := authService.Signup(context.Background(), "alice@example.com", "Alice", "correct horse")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"correct horse"}`)

	err = handler.Login(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if sessionCookie(t, rec) == nil {
		t.Error("Expected a session cookie")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	e := echo.New()
	handler, authService, _ := newAuthHandler()

	_, _, err := authService.Signup(context.Background(), "alice@example.com", "Alice", "correct horse")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"wrong horse"}`)

	err = handler.Login(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	e := echo.New()
	handler, authService, _ := newAuthHandler()

	_, session, err := authService.Signup(context.Background(), "alice@example.com", "Alice", "correct horse")
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	c, rec := jsonRequest(e, http.MethodPost, "/api/v1/auth/logout", "")
	setSessionToken(c, session.Token)

	err = handler.Logout(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}

	cookie := sessionCookie(t, rec)
	if cookie == nil || cookie.MaxAge >= 0 {
		t.Error("Expected the session cookie to be cleared")
	}

	// The session should no longer validate
	if _, _, err := authService.ValidateSession(context.Background(), session.Token); err == nil {
		t.Error("Expected the session to be invalidated")
	}
}

func TestMe_Success(t *testing.T) {
	e := echo.New()
	handler, _, users := newAuthHandler()
	user := users.AddUser("alice@example.com", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setPrincipal(c, domain.Principal{UserID: user.ID, Email: user.Email})

	err := handler.Me(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response UserResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.ID != user.ID.String() {
		t.Errorf("Expected user ID %s, got %s", user.ID, response.ID)
	}
}

func TestMe_Unauthenticated(t *testing.T) {
	e := echo.New()
	handler, _, _ := newAuthHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := handler.Me(c)
	if err != nil {
		t.Fatalf("Expected JSON response, got error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestDeleteAccount_Success(t *testing.T) {
	e := echo.New()
	handler, authService, users := newAuthHandler()
	user := users.AddUser("alice@example.com", "Alice")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setPrincipal(c, domain.Principal{UserID: user.ID, Email: user.Email})

	err := handler.DeleteAccount(c)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", rec.Code)
	}

	if _, err := authService.GetUser(context.Background(), user.ID); err == nil {
		t.Error("Expected the user to be gone")
	}
}
