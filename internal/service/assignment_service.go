package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util"
)

// AssignmentService routes unassigned tickets to the least-loaded active
// agent. Ties are broken by ascending agent id so the choice is
// deterministic. Having no eligible agent is not an error: the ticket stays
// unassigned and the stale monitor retries later.
type AssignmentService struct {
	tickets    repository.TicketRepository
	users      repository.UserRepository
	logs       repository.TicketLogRepository
	cacheSvc   *TicketCacheService
	dispatcher events.Dispatcher

	// mu serializes the count-then-assign sequence; concurrent attempts
	// would otherwise pick the same least-loaded agent.
	mu sync.Mutex
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo repository.TicketRepository
	UserRepo   repository.UserRepository
	LogRepo    repository.TicketLogRepository
	CacheSvc   *TicketCacheService
	Dispatcher events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		logs:       deps.LogRepo,
		cacheSvc:   deps.CacheSvc,
		dispatcher: deps.Dispatcher,
	}
}

// RegisterHandlers subscribes auto-assignment to ticket creation so a new
// ticket is routed without the creating request waiting on it.
func (s *AssignmentService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, func(ctx context.Context, event events.Event) error {
		_, err := s.AutoAssign(ctx, event.TicketID)
		return err
	})
}

// AutoAssign hands the ticket to the active agent with the fewest tickets
// in {open, in_progress}. Already-assigned tickets and an empty agent pool
// are both silent no-ops with no log entry.
func (s *AssignmentService) AutoAssign(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(apperrors.MapError(err)) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.AssigneeID != nil {
		return ticket, nil
	}

	loads, err := s.users.ListAgentsByLoad(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(loads) == 0 {
		return ticket, nil
	}
	agent := loads[0].Agent

	ticket.AssigneeID = &agent.ID
	ticket.Status = domain.TicketStatusInProgress
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	// System-originated entry: no acting user.
	entry := &domain.LogEntry{
		TicketID: ticket.ID,
		Action:   domain.LogActionAssigned,
		Details: domain.AssignmentDetails{
			AgentID:   agent.ID,
			AgentName: agent.Name,
		},
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.cacheSvc.InvalidateTicket(ctx, ticket, nil)
	s.cacheSvc.InvalidateStatistics(ctx)

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:          uuid.NewString(),
			Type:        events.EventTicketAssigned,
			TicketID:    ticket.ID,
			RecipientID: agent.ID,
			Timestamp:   time.Now(),
			Payload: events.TicketAssignedPayload{
				AgentID:   agent.ID,
				AgentName: agent.Name,
			},
		})
	}
	return ticket, nil
}
