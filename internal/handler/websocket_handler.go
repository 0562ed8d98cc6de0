package handler

import (
	"net/http"

	ws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/tallyhq/tally-backend/internal/domain"
	"github.com/tallyhq/tally-backend/internal/middleware"
	"github.com/tallyhq/tally-backend/internal/websocket"
)

// WebSocketHandler handles WebSocket connections. A connection is
// subscribed to the caller's personal channel and one channel per team
// they belong to at connect time.
type WebSocketHandler struct {
	hub            *websocket.Hub
	sessions       middleware.SessionValidator
	tokens         middleware.APITokenAuthenticator
	membershipRepo domain.MembershipRepository
	allowedOrigins map[string]bool
	upgrader       ws.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler
func NewWebSocketHandler(hub *websocket.Hub, sessions middleware.SessionValidator, tokens middleware.APITokenAuthenticator, membershipRepo domain.MembershipRepository, allowedOrigins []string) *WebSocketHandler {
	// Build origin lookup map
	originMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		originMap[origin] = true
	}

	h := &WebSocketHandler{
		hub:            hub,
		sessions:       sessions,
		tokens:         tokens,
		membershipRepo: membershipRepo,
		allowedOrigins: originMap,
	}

	h.upgrader = ws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the request origin against allowed origins
func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// Allow requests with no Origin header (e.g., same-origin or non-browser clients)
		return true
	}

	if h.allowedOrigins[origin] {
		return true
	}

	log.Warn().
		Str("origin", origin).
		Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// HandleWS handles WebSocket connection requests at GET /ws
func (h *WebSocketHandler) HandleWS(c echo.Context) error {
	principal, err := h.authenticate(c)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket connection rejected")
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	teamIDs, err := h.membershipRepo.MemberTeamIDs(c.Request().Context(), principal.UserID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve team memberships for WebSocket")
		return echo.NewHTTPError(http.StatusInternalServerError, "subscription setup failed")
	}

	channels := make([]string, 0, len(teamIDs)+1)
	channels = append(channels, websocket.UserChannel(principal.UserID))
	for _, teamID := range teamIDs {
		channels = append(channels, websocket.TeamChannel(teamID))
	}

	// Upgrade HTTP connection to WebSocket
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return err
	}

	// Create client and register with hub
	client := websocket.NewClient(conn, channels, h.hub)
	h.hub.Register(client)

	log.Info().
		Str("user_id", principal.UserID.String()).
		Str("client_id", client.ID()).
		Int("channels", len(channels)).
		Msg("WebSocket client connected")

	// Start read/write pumps in goroutines
	go client.WritePump()
	go client.ReadPump()

	return nil
}

// authenticate resolves the principal from the session cookie or, for
// programmatic clients, an API token in the token query parameter.
func (h *WebSocketHandler) authenticate(c echo.Context) (*domain.Principal, error) {
	if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		principal, _, err := h.sessions.ValidateSession(c.Request().Context(), cookie.Value)
		if err == nil {
			return principal, nil
		}
	}

	token := c.QueryParam("token")
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	principal, _, err := h.tokens.Authenticate(c.Request().Context(), token)
	if err != nil {
		return nil, err
	}
	return principal, nil
}
