package websocket

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrClientClosed is returned when attempting to send to a closed client
var ErrClientClosed = errors.New("client is closed")

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	Channels() []string
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections organized by channel. A client is
// registered under every channel it subscribes to (its own user channel
// plus one channel per team it belongs to).
// It is safe for concurrent use
type Hub struct {
	// channels maps channel name to a map of client ID to client
	channels map[string]map[string]ClientInterface
	mu       sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under each of its channels
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientID := client.ID()
	for _, channel := range client.Channels() {
		if h.channels[channel] == nil {
			h.channels[channel] = make(map[string]ClientInterface)
		}
		h.channels[channel][clientID] = client
	}

	log.Debug().
		Strs("channels", client.Channels()).
		Str("client_id", clientID).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientID := client.ID()
	for _, channel := range client.Channels() {
		if clients, ok := h.channels[channel]; ok {
			if _, exists := clients[clientID]; exists {
				delete(clients, clientID)

				// Clean up empty channel maps
				if len(clients) == 0 {
					delete(h.channels, channel)
				}
			}
		}
	}

	log.Debug().
		Str("client_id", clientID).
		Msg("WebSocket client unregistered")
}

// Broadcast sends an event to all clients subscribed to a channel
func (h *Hub) Broadcast(channel string, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("channel", channel).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients, ok := h.channels[channel]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy clients to avoid holding lock during send
	clientsCopy := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		clientsCopy = append(clientsCopy, client)
	}
	h.mu.RUnlock()

	// Send to each client asynchronously
	for _, client := range clientsCopy {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("channel", channel).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("channel", channel).
		Str("event_type", event.Type).
		Int("client_count", len(clientsCopy)).
		Msg("Broadcast event")
}

// Unsubscribe removes every client registered on userChannel from
// channel. A connection's channel set is fixed at registration, so
// when a member is removed from a team their open connections must be
// dropped from the team channel here or they keep receiving its
// events until they reconnect.
func (h *Hub) Unsubscribe(userChannel, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	affected, ok := h.channels[userChannel]
	if !ok {
		return
	}
	clients, ok := h.channels[channel]
	if !ok {
		return
	}

	removed := 0
	for clientID := range affected {
		if _, exists := clients[clientID]; exists {
			delete(clients, clientID)
			removed++
		}
	}
	if len(clients) == 0 {
		delete(h.channels, channel)
	}

	if removed > 0 {
		log.Debug().
			Str("channel", channel).
			Str("user_channel", userChannel).
			Int("client_count", removed).
			Msg("WebSocket subscriptions revoked")
	}
}

// ClientCount returns the number of clients subscribed to a channel
func (h *Hub) ClientCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if clients, ok := h.channels[channel]; ok {
		return len(clients)
	}
	return 0
}

// TotalClientCount returns the number of distinct connected clients
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, clients := range h.channels {
		for id := range clients {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}
