package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// statusOrder ranks statuses along the forward lifecycle. Transitions may
// only move to a higher rank; a same-rank change is a no-op.
var statusOrder = map[TicketStatus]int{
	TicketStatusOpen:       0,
	TicketStatusInProgress: 1,
	TicketStatusResolved:   2,
	TicketStatusClosed:     3,
}

// ParseTicketStatus validates a raw status string.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	switch TicketStatus(raw) {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return TicketStatus(raw), true
	}
	return "", false
}

// CanTransition reports whether moving from current to next is a legal
// forward transition. Equal statuses return false; callers treat that as a
// no-op rather than an error.
func CanTransition(current, next TicketStatus) bool {
	return statusOrder[next] > statusOrder[current]
}

// ActiveStatuses are the states in which a ticket still demands agent work;
// assignment load counting and the stale sweep both operate on this set.
var ActiveStatuses = []TicketStatus{TicketStatusOpen, TicketStatusInProgress}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// ParseTicketPriority validates a raw priority string.
func ParseTicketPriority(raw string) (TicketPriority, bool) {
	switch TicketPriority(raw) {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return TicketPriority(raw), true
	}
	return "", false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID              string
	RequesterID     string
	AssigneeID      *string
	Subject         string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	LastRespondedAt *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

func (t *Ticket) IsActive() bool {
	return t.Status == TicketStatusOpen || t.Status == TicketStatusInProgress
}

func (t *Ticket) IsHighPriority() bool {
	return t.Priority == TicketPriorityHigh || t.Priority == TicketPriorityUrgent
}
