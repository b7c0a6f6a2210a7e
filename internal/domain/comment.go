package domain

import "time"

// Comment is a free-text entry in a ticket thread. Private comments are
// visible to agents and admins only; they are immutable once created.
type Comment struct {
	ID        string
	TicketID  string
	UserID    string
	Content   string
	IsPrivate bool
	CreatedAt time.Time
}
