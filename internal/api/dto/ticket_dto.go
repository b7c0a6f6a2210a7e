package dto

import (
	"time"

	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/service"
)

// CreateTicketRequest is the payload for opening a ticket.
type CreateTicketRequest struct {
	Subject     string `json:"subject" validate:"required,min=3,max=255"`
	Description string `json:"description" validate:"required,min=3"`
	Priority    string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

// AddCommentRequest is the payload for commenting on a ticket.
type AddCommentRequest struct {
	Content   string `json:"content" validate:"required,min=1"`
	IsPrivate bool   `json:"is_private"`
}

// ChangeStatusRequest is the payload for a status transition.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved closed"`
}

// AssignTicketRequest is the payload for manual assignment.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id" validate:"required,uuid"`
}

// ListTicketsQuery captures list filters from the query string.
type ListTicketsQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=open in_progress resolved closed"`
	Search string `query:"search"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

// TicketResponse is the wire representation of a ticket.
type TicketResponse struct {
	ID              string     `json:"id"`
	RequesterID     string     `json:"requester_id"`
	AssigneeID      *string    `json:"assignee_id"`
	Subject         string     `json:"subject"`
	Description     string     `json:"description"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	LastRespondedAt *time.Time `json:"last_responded_at"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ClosedAt        *time.Time `json:"closed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CommentResponse is the wire representation of a comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	IsPrivate bool      `json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
}

// LogEntryResponse is the wire representation of an audit log entry.
type LogEntryResponse struct {
	ID        string            `json:"id"`
	TicketID  string            `json:"ticket_id"`
	UserID    *string           `json:"user_id"`
	Action    string            `json:"action"`
	Details   domain.LogDetails `json:"details"`
	CreatedAt time.Time         `json:"created_at"`
}

// TicketDetailResponse bundles a ticket with its comments and audit trail.
type TicketDetailResponse struct {
	Ticket   TicketResponse     `json:"ticket"`
	Comments []CommentResponse  `json:"comments"`
	Logs     []LogEntryResponse `json:"logs"`
}

// StatisticsResponse is the dashboard statistics payload.
type StatisticsResponse struct {
	Total              int     `json:"total"`
	Open               int     `json:"open"`
	InProgress         int     `json:"in_progress"`
	Resolved           int     `json:"resolved"`
	Closed             int     `json:"closed"`
	HighPriority       int     `json:"high_priority"`
	AvgResolutionHours float64 `json:"avg_resolution_time"`
}

// ToTicketResponse maps a domain ticket onto the wire form.
func ToTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		RequesterID:     t.RequesterID,
		AssigneeID:      t.AssigneeID,
		Subject:         t.Subject,
		Description:     t.Description,
		Status:          string(t.Status),
		Priority:        string(t.Priority),
		LastRespondedAt: t.LastRespondedAt,
		ResolvedAt:      t.ResolvedAt,
		ClosedAt:        t.ClosedAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// ToTicketResponses maps a slice of tickets.
func ToTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, ToTicketResponse(&tickets[i]))
	}
	return out
}

// ToCommentResponse maps a domain comment onto the wire form.
func ToCommentResponse(c domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		TicketID:  c.TicketID,
		UserID:    c.UserID,
		Content:   c.Content,
		IsPrivate: c.IsPrivate,
		CreatedAt: c.CreatedAt,
	}
}

// ToLogEntryResponse maps a domain log entry onto the wire form.
func ToLogEntryResponse(l domain.LogEntry) LogEntryResponse {
	return LogEntryResponse{
		ID:        l.ID,
		TicketID:  l.TicketID,
		UserID:    l.UserID,
		Action:    string(l.Action),
		Details:   l.Details,
		CreatedAt: l.CreatedAt,
	}
}

// ToTicketDetailResponse maps a cached ticket detail bundle.
func ToTicketDetailResponse(d *service.TicketDetail) TicketDetailResponse {
	resp := TicketDetailResponse{
		Ticket:   ToTicketResponse(&d.Ticket),
		Comments: make([]CommentResponse, 0, len(d.Comments)),
		Logs:     make([]LogEntryResponse, 0, len(d.Logs)),
	}
	for _, c := range d.Comments {
		resp.Comments = append(resp.Comments, ToCommentResponse(c))
	}
	for _, l := range d.Logs {
		resp.Logs = append(resp.Logs, ToLogEntryResponse(l))
	}
	return resp
}

// CustomerTicketResponse is a customer's ticket with its public comments.
type CustomerTicketResponse struct {
	Ticket   TicketResponse    `json:"ticket"`
	Comments []CommentResponse `json:"comments"`
}

// ToCustomerTicketResponses maps the cached customer ticket list.
func ToCustomerTicketResponses(items []service.CustomerTicket) []CustomerTicketResponse {
	out := make([]CustomerTicketResponse, 0, len(items))
	for i := range items {
		item := &items[i]
		resp := CustomerTicketResponse{
			Ticket:   ToTicketResponse(&item.Ticket),
			Comments: make([]CommentResponse, 0, len(item.Comments)),
		}
		for _, c := range item.Comments {
			resp.Comments = append(resp.Comments, ToCommentResponse(c))
		}
		out = append(out, resp)
	}
	return out
}

// ToStatisticsResponse maps cached statistics.
func ToStatisticsResponse(s *service.Statistics) StatisticsResponse {
	return StatisticsResponse{
		Total:              s.Total,
		Open:               s.Open,
		InProgress:         s.InProgress,
		Resolved:           s.Resolved,
		Closed:             s.Closed,
		HighPriority:       s.HighPriority,
		AvgResolutionHours: s.AvgResolutionHours,
	}
}
