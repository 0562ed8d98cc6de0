package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event (created, updated, deleted)
type EventType string

const (
	EventTypeCreated EventType = "created"
	EventTypeUpdated EventType = "updated"
	EventTypeDeleted EventType = "deleted"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeExpense    EntityType = "expense"
	EntityTypeCategory   EntityType = "category"
	EntityTypeBudget     EntityType = "budget"
	EntityTypeRecurring  EntityType = "recurring"
	EntityTypeTeam       EntityType = "team"
	EntityTypeMembership EntityType = "membership"
)

// Event represents a WebSocket event message sent to clients
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "expense.created"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "expense"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// UserChannel is the channel carrying a user's personal-scope events
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// TeamChannel is the channel carrying a team's shared-scope events
func TeamChannel(teamID int32) string {
	return fmt.Sprintf("team:%d", teamID)
}
