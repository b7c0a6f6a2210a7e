package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/policy"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util"
)

// TicketService is the single path through which ticket state may change.
// Every mutation checks the policy first, appends an audit entry, drops the
// touched cache keys, and hands follow-up tasks to the dispatcher.
type TicketService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	comments   repository.CommentRepository
	logs       repository.TicketLogRepository
	policy     *policy.TicketPolicy
	cacheSvc   *TicketCacheService
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	CommentRepo repository.CommentRepository
	LogRepo     repository.TicketLogRepository
	Policy      *policy.TicketPolicy
	CacheSvc    *TicketCacheService
	Dispatcher  events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject     string
	Description string
	Priority    string
}

// TicketListFilter describes role-scoped listing parameters.
type TicketListFilter struct {
	Status     string
	SearchTerm string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		comments:   deps.CommentRepo,
		logs:       deps.LogRepo,
		policy:     deps.Policy,
		cacheSvc:   deps.CacheSvc,
		dispatcher: deps.Dispatcher,
	}
}

// CreateTicket opens a new ticket for the acting user. The ticket starts
// open and unassigned; automatic assignment is triggered through the
// dispatcher so creation never waits on it.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if !s.policy.Can(actor, policy.CapabilityCreate, nil) {
		return nil, apperrors.NewForbidden("not allowed to create tickets")
	}

	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, apperrors.NewValidationError("subject and description are required", nil)
	}
	priority, ok := domain.ParseTicketPriority(input.Priority)
	if !ok {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	ticket := &domain.Ticket{
		RequesterID: actor.ID,
		Subject:     subject,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.appendLog(ctx, ticket.ID, &actor.ID, domain.LogActionCreated, nil); err != nil {
		return nil, err
	}

	s.cacheSvc.InvalidateTicket(ctx, ticket, nil)
	s.cacheSvc.InvalidateStatistics(ctx)

	s.publish(ctx, events.Event{
		Type:        events.EventTicketCreated,
		TicketID:    ticket.ID,
		RecipientID: ticket.RequesterID,
		ActorID:     &actor.ID,
		Payload: events.TicketCreatedPayload{
			Subject:  ticket.Subject,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// AddComment appends a comment to the ticket thread. A public agent reply
// on an open ticket pulls the ticket into in_progress and claims it for the
// agent when nobody holds it yet.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID, content string, private bool) (*domain.Comment, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, policy.CapabilityComment, ticket) {
		return nil, apperrors.NewForbidden("not allowed to comment on this ticket")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewValidationError("content is required", nil)
	}

	// Only agents can keep a note private.
	isPrivate := private && actor.IsAgent()

	comment := &domain.Comment{
		TicketID:  ticket.ID,
		UserID:    actor.ID,
		Content:   strings.TrimSpace(content),
		IsPrivate: isPrivate,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	now := time.Now()
	ticket.LastRespondedAt = &now

	autoTransitioned := false
	if actor.IsAgent() && !isPrivate && ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusInProgress
		if ticket.AssigneeID == nil {
			ticket.AssigneeID = &actor.ID
		}
		autoTransitioned = true
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if autoTransitioned {
		err := s.appendLog(ctx, ticket.ID, &actor.ID, domain.LogActionStatusChanged, domain.StatusChangeDetails{
			From: domain.TicketStatusOpen,
			To:   domain.TicketStatusInProgress,
		})
		if err != nil {
			return nil, err
		}
	}

	action := domain.LogActionAddedComment
	if isPrivate {
		action = domain.LogActionAddedPrivateNote
	}
	if err := s.appendLog(ctx, ticket.ID, &actor.ID, action, nil); err != nil {
		return nil, err
	}

	s.cacheSvc.InvalidateTicket(ctx, ticket, nil)
	if autoTransitioned {
		s.cacheSvc.InvalidateStatistics(ctx)
	}
	return comment, nil
}

// ChangeStatus moves the ticket along the lifecycle. Statuses only flow
// forward; a same-status change is a silent no-op and the resolved/closed
// timestamps are stamped only on first entry.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.User, ticketID, rawStatus string) (*domain.Ticket, error) {
	newStatus, ok := domain.ParseTicketStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": rawStatus})
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, policy.CapabilityChangeStatus, ticket) {
		return nil, apperrors.NewForbidden("not allowed to change status of this ticket")
	}

	oldStatus := ticket.Status
	if newStatus == oldStatus {
		return ticket, nil
	}
	if !domain.CanTransition(oldStatus, newStatus) {
		return nil, apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": string(oldStatus),
			"to":   string(newStatus),
		})
	}

	now := time.Now()
	if newStatus == domain.TicketStatusResolved && ticket.ResolvedAt == nil {
		ticket.ResolvedAt = &now
	}
	if newStatus == domain.TicketStatusClosed && ticket.ClosedAt == nil {
		ticket.ClosedAt = &now
	}
	ticket.Status = newStatus

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	err = s.appendLog(ctx, ticket.ID, &actor.ID, domain.LogActionStatusChanged, domain.StatusChangeDetails{
		From: oldStatus,
		To:   newStatus,
	})
	if err != nil {
		return nil, err
	}

	s.cacheSvc.InvalidateTicket(ctx, ticket, nil)
	s.cacheSvc.InvalidateStatistics(ctx)
	return ticket, nil
}

// AssignManually lets an admin hand the ticket to a specific agent, forcing
// the ticket into in_progress regardless of its prior status.
func (s *TicketService) AssignManually(ctx context.Context, actor *domain.User, ticketID, agentID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, policy.CapabilityAssign, ticket) {
		return nil, apperrors.NewForbidden("not allowed to assign this ticket")
	}

	agent, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		if apperrors.IsNotFound(apperrors.MapError(err)) {
			return nil, apperrors.NewNotFound("agent", map[string]any{"agent_id": agentID})
		}
		return nil, apperrors.MapError(err)
	}
	if !agent.IsAgent() || !agent.IsActive {
		return nil, apperrors.NewValidationError("assignee must be an active agent", map[string]any{"agent_id": agentID})
	}

	previousAssignee := ticket.AssigneeID
	ticket.AssigneeID = &agent.ID
	ticket.Status = domain.TicketStatusInProgress

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	err = s.appendLog(ctx, ticket.ID, &actor.ID, domain.LogActionManuallyAssigned, domain.ManualAssignmentDetails{
		AgentID: agent.ID,
	})
	if err != nil {
		return nil, err
	}

	s.cacheSvc.InvalidateTicket(ctx, ticket, previousAssignee)
	s.cacheSvc.InvalidateStatistics(ctx)

	s.publish(ctx, events.Event{
		Type:        events.EventTicketAssigned,
		TicketID:    ticket.ID,
		RecipientID: agent.ID,
		ActorID:     &actor.ID,
		Payload: events.TicketAssignedPayload{
			AgentID:   agent.ID,
			AgentName: agent.Name,
		},
	})
	return ticket, nil
}

// ListTickets returns the role-scoped listing: admins see everything,
// agents their own queue, customers their own tickets.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	if filter.Status != "" && filter.Status != "all" {
		status, ok := domain.ParseTicketStatus(filter.Status)
		if !ok {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": filter.Status})
		}
		repoFilter.Status = &status
	}
	if strings.TrimSpace(filter.SearchTerm) != "" {
		term := filter.SearchTerm
		repoFilter.SearchTerm = &term
	}
	switch {
	case actor.IsAdmin():
	case actor.IsAgent():
		repoFilter.AssigneeID = &actor.ID
	default:
		repoFilter.RequesterID = &actor.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket loads a ticket and enforces the view capability.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.policy.Can(actor, policy.CapabilityView, ticket) {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	return ticket, nil
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(apperrors.MapError(err)) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) appendLog(ctx context.Context, ticketID string, userID *string, action domain.LogAction, details domain.LogDetails) error {
	entry := &domain.LogEntry{
		TicketID: ticketID,
		UserID:   userID,
		Action:   action,
		Details:  details,
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
