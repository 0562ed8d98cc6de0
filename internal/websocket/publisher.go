package websocket

// EventPublisher defines the interface for publishing events to WebSocket clients
type EventPublisher interface {
	// Publish sends an event to all clients subscribed to the channel
	Publish(channel string, event Event)
	// Unsubscribe drops every live connection on userChannel from
	// channel, so a revoked membership stops event delivery without
	// waiting for a reconnect
	Unsubscribe(userChannel, channel string)
}

// Ensure Hub implements EventPublisher
var _ EventPublisher = (*Hub)(nil)

// Publish implements EventPublisher by broadcasting the event to the channel
func (h *Hub) Publish(channel string, event Event) {
	h.Broadcast(channel, event)
}

// NoOpPublisher is a publisher that does nothing (for testing or when WebSocket is disabled)
type NoOpPublisher struct{}

// Publish does nothing
func (n *NoOpPublisher) Publish(channel string, event Event) {}

// Unsubscribe does nothing
func (n *NoOpPublisher) Unsubscribe(userChannel, channel string) {}
