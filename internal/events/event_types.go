package events

import (
	"time"

	"github.com/supportdesk/helpdesk-service/internal/domain"
)

// EventType enumerates the notification kinds the core enqueues.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketAssigned EventType = "ticket_assigned"
	EventStaleReminder  EventType = "stale_reminder"
)

// Event is a notification task handed to the dispatcher. RecipientID is the
// user the notification is addressed to; ActorID is nil for system events.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	TicketID    string      `json:"ticket_id"`
	RecipientID string      `json:"recipient_id"`
	ActorID     *string     `json:"actor_id,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject  string                `json:"subject"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

// StaleReminderPayload payload.
type StaleReminderPayload struct {
	AgentID         string     `json:"agent_id"`
	LastRespondedAt *time.Time `json:"last_responded_at,omitempty"`
}
