package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supportdesk/helpdesk-service/internal/cache"
	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/policy"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util"
)

type ticketEnv struct {
	tickets    *fakeTicketRepo
	users      *fakeUserRepo
	comments   *fakeCommentRepo
	logs       *fakeLogRepo
	cache      *fakeCache
	dispatcher *recordingDispatcher
	service    *TicketService

	admin    *domain.User
	agent    *domain.User
	customer *domain.User
}

func newTicketEnv() *ticketEnv {
	env := &ticketEnv{
		tickets:    newFakeTicketRepo(),
		users:      newFakeUserRepo(),
		comments:   &fakeCommentRepo{},
		logs:       &fakeLogRepo{},
		cache:      newFakeCache(),
		dispatcher: newRecordingDispatcher(),
	}
	cacheSvc := NewTicketCacheService(CacheDependencies{
		TicketRepo:  env.tickets,
		CommentRepo: env.comments,
		LogRepo:     env.logs,
		Cache:       env.cache,
	})
	env.service = NewTicketService(TicketDependencies{
		TicketRepo:  env.tickets,
		UserRepo:    env.users,
		CommentRepo: env.comments,
		LogRepo:     env.logs,
		Policy:      policy.NewTicketPolicy(),
		CacheSvc:    cacheSvc,
		Dispatcher:  env.dispatcher,
	})

	env.admin = &domain.User{ID: "admin-1", Name: "Ada", Role: domain.RoleAdmin, IsActive: true}
	env.agent = &domain.User{ID: "agent-1", Name: "Greg", Role: domain.RoleAgent, IsActive: true}
	env.customer = &domain.User{ID: "customer-1", Name: "Cleo", Role: domain.RoleCustomer, IsActive: true}
	env.users.add(*env.admin)
	env.users.add(*env.agent)
	env.users.add(*env.customer)
	return env
}

func (env *ticketEnv) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := env.service.CreateTicket(context.Background(), env.customer, TicketCreateInput{
		Subject:     "printer on fire",
		Description: "smoke everywhere",
		Priority:    "high",
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateTicket(t *testing.T) {
	ctx := context.Background()

	t.Run("starts open and unassigned", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
		assert.Nil(t, ticket.AssigneeID)
		assert.Equal(t, env.customer.ID, ticket.RequesterID)
		assert.Nil(t, ticket.LastRespondedAt)

		entries := env.logs.byAction(domain.LogActionCreated)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].UserID)
		assert.Equal(t, env.customer.ID, *entries[0].UserID)

		published := env.dispatcher.events()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventTicketCreated, published[0].Type)
		assert.Equal(t, ticket.ID, published[0].TicketID)
	})

	t.Run("accepts urgent priority", func(t *testing.T) {
		env := newTicketEnv()
		ticket, err := env.service.CreateTicket(ctx, env.customer, TicketCreateInput{
			Subject:     "subject",
			Description: "description",
			Priority:    "urgent",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TicketPriorityUrgent, ticket.Priority)
	})

	t.Run("rejects unknown priority", func(t *testing.T) {
		env := newTicketEnv()
		_, err := env.service.CreateTicket(ctx, env.customer, TicketCreateInput{
			Subject:     "subject",
			Description: "description",
			Priority:    "critical",
		})
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	})

	t.Run("rejects blank subject", func(t *testing.T) {
		env := newTicketEnv()
		_, err := env.service.CreateTicket(ctx, env.customer, TicketCreateInput{
			Subject:     "   ",
			Description: "description",
			Priority:    "low",
		})
		require.Error(t, err)
	})
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()

	t.Run("customer comment stamps responded without transition", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		_, err := env.service.AddComment(ctx, env.customer, ticket.ID, "any update?", false)
		require.NoError(t, err)

		stored, err := env.tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, stored.Status)
		assert.Nil(t, stored.AssigneeID)
		assert.NotNil(t, stored.LastRespondedAt)
	})

	t.Run("agent public reply on open ticket claims and starts progress", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		_, err := env.service.AddComment(ctx, env.agent, ticket.ID, "taking a look", false)
		require.NoError(t, err)

		stored, err := env.tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
		require.NotNil(t, stored.AssigneeID)
		assert.Equal(t, env.agent.ID, *stored.AssigneeID)

		changes := env.logs.byAction(domain.LogActionStatusChanged)
		require.Len(t, changes, 1)
		details, ok := changes[0].Details.(domain.StatusChangeDetails)
		require.True(t, ok)
		assert.Equal(t, domain.TicketStatusOpen, details.From)
		assert.Equal(t, domain.TicketStatusInProgress, details.To)
		assert.Len(t, env.logs.byAction(domain.LogActionAddedComment), 1)
	})

	t.Run("second agent reply does not log another transition", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		_, err := env.service.AddComment(ctx, env.agent, ticket.ID, "first", false)
		require.NoError(t, err)
		_, err = env.service.AddComment(ctx, env.agent, ticket.ID, "second", false)
		require.NoError(t, err)

		assert.Len(t, env.logs.byAction(domain.LogActionStatusChanged), 1)
		assert.Len(t, env.logs.byAction(domain.LogActionAddedComment), 2)
	})

	t.Run("agent private note never transitions", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		comment, err := env.service.AddComment(ctx, env.agent, ticket.ID, "internal note", true)
		require.NoError(t, err)
		assert.True(t, comment.IsPrivate)

		stored, err := env.tickets.GetByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, stored.Status)
		assert.Nil(t, stored.AssigneeID)
		assert.Len(t, env.logs.byAction(domain.LogActionAddedPrivateNote), 1)
	})

	t.Run("customer cannot create private notes", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		comment, err := env.service.AddComment(ctx, env.customer, ticket.ID, "secret?", true)
		require.NoError(t, err)
		assert.False(t, comment.IsPrivate)
	})

	t.Run("unrelated customer is forbidden", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)
		stranger := &domain.User{ID: "customer-2", Role: domain.RoleCustomer, IsActive: true}

		_, err := env.service.AddComment(ctx, stranger, ticket.ID, "me too", false)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})

	t.Run("unknown ticket is not found", func(t *testing.T) {
		env := newTicketEnv()
		_, err := env.service.AddComment(ctx, env.customer, "missing", "hello", false)
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestChangeStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("forward transition stamps resolved once", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		updated, err := env.service.ChangeStatus(ctx, env.admin, ticket.ID, "resolved")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusResolved, updated.Status)
		require.NotNil(t, updated.ResolvedAt)
		firstStamp := *updated.ResolvedAt

		// Same-status change is a silent no-op: no log, no new stamp.
		again, err := env.service.ChangeStatus(ctx, env.admin, ticket.ID, "resolved")
		require.NoError(t, err)
		require.NotNil(t, again.ResolvedAt)
		assert.True(t, again.ResolvedAt.Equal(firstStamp))
		assert.Len(t, env.logs.byAction(domain.LogActionStatusChanged), 1)
	})

	t.Run("backward transition is rejected", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		_, err := env.service.ChangeStatus(ctx, env.admin, ticket.ID, "closed")
		require.NoError(t, err)
		_, err = env.service.ChangeStatus(ctx, env.admin, ticket.ID, "open")
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	})

	t.Run("requester may close only a resolved ticket", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		_, err := env.service.ChangeStatus(ctx, env.customer, ticket.ID, "in_progress")
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

		_, err = env.service.ChangeStatus(ctx, env.admin, ticket.ID, "resolved")
		require.NoError(t, err)

		closed, err := env.service.ChangeStatus(ctx, env.customer, ticket.ID, "closed")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusClosed, closed.Status)
		assert.NotNil(t, closed.ClosedAt)
	})

	t.Run("assigned agent may move their ticket", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)
		_, err := env.service.AssignManually(ctx, env.admin, ticket.ID, env.agent.ID)
		require.NoError(t, err)

		updated, err := env.service.ChangeStatus(ctx, env.agent, ticket.ID, "resolved")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusResolved, updated.Status)
	})

	t.Run("unassigned agent may not", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)
		other := &domain.User{ID: "agent-2", Role: domain.RoleAgent, IsActive: true}

		_, err := env.service.ChangeStatus(ctx, other, ticket.ID, "resolved")
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)
		_, err := env.service.ChangeStatus(ctx, env.admin, ticket.ID, "parked")
		require.Error(t, err)
	})
}

func TestAssignManually(t *testing.T) {
	ctx := context.Background()

	t.Run("admin assigns active agent", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		updated, err := env.service.AssignManually(ctx, env.admin, ticket.ID, env.agent.ID)
		require.NoError(t, err)
		require.NotNil(t, updated.AssigneeID)
		assert.Equal(t, env.agent.ID, *updated.AssigneeID)
		assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

		entries := env.logs.byAction(domain.LogActionManuallyAssigned)
		require.Len(t, entries, 1)
		details, ok := entries[0].Details.(domain.ManualAssignmentDetails)
		require.True(t, ok)
		assert.Equal(t, env.agent.ID, details.AgentID)

		published := env.dispatcher.events()
		require.NotEmpty(t, published)
		last := published[len(published)-1]
		assert.Equal(t, events.EventTicketAssigned, last.Type)
		assert.Equal(t, env.agent.ID, last.RecipientID)
	})

	t.Run("reassignment drops the previous agent queue", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)
		second := domain.User{ID: "agent-2", Name: "Hana", Role: domain.RoleAgent, IsActive: true}
		env.users.add(second)

		_, err := env.service.AssignManually(ctx, env.admin, ticket.ID, env.agent.ID)
		require.NoError(t, err)
		_, err = env.service.AssignManually(ctx, env.admin, ticket.ID, second.ID)
		require.NoError(t, err)

		deleted := env.cache.deletedKeys()
		assert.Contains(t, deleted, cache.AgentTicketsKey(env.agent.ID))
		assert.Contains(t, deleted, cache.AgentTicketsKey(second.ID))
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		_, err := env.service.AssignManually(ctx, env.agent, ticket.ID, env.agent.ID)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
	})

	t.Run("assignee must be an active agent", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)

		_, err := env.service.AssignManually(ctx, env.admin, ticket.ID, env.customer.ID)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

		inactive := domain.User{ID: "agent-9", Role: domain.RoleAgent, IsActive: false}
		env.users.add(inactive)
		_, err = env.service.AssignManually(ctx, env.admin, ticket.ID, inactive.ID)
		require.Error(t, err)
		assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	})

	t.Run("unknown agent is not found", func(t *testing.T) {
		env := newTicketEnv()
		ticket := env.createTicket(t)
		_, err := env.service.AssignManually(ctx, env.admin, ticket.ID, "ghost")
		require.Error(t, err)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestListTickets(t *testing.T) {
	ctx := context.Background()
	env := newTicketEnv()

	first := env.createTicket(t)
	second := env.createTicket(t)
	_, err := env.service.AssignManually(ctx, env.admin, second.ID, env.agent.ID)
	require.NoError(t, err)

	other := domain.User{ID: "customer-2", Role: domain.RoleCustomer, IsActive: true}
	env.users.add(other)
	third, err := env.service.CreateTicket(ctx, &other, TicketCreateInput{
		Subject:     "billing question",
		Description: "charged twice",
		Priority:    "low",
	})
	require.NoError(t, err)

	t.Run("admin sees everything", func(t *testing.T) {
		tickets, err := env.service.ListTickets(ctx, env.admin, TicketListFilter{})
		require.NoError(t, err)
		assert.Len(t, tickets, 3)
	})

	t.Run("agent sees own queue", func(t *testing.T) {
		tickets, err := env.service.ListTickets(ctx, env.agent, TicketListFilter{})
		require.NoError(t, err)
		require.Len(t, tickets, 1)
		assert.Equal(t, second.ID, tickets[0].ID)
	})

	t.Run("customer sees own tickets", func(t *testing.T) {
		tickets, err := env.service.ListTickets(ctx, env.customer, TicketListFilter{})
		require.NoError(t, err)
		assert.Len(t, tickets, 2)
		for _, ticket := range tickets {
			assert.NotEqual(t, third.ID, ticket.ID)
		}
	})

	t.Run("status filter applies", func(t *testing.T) {
		tickets, err := env.service.ListTickets(ctx, env.admin, TicketListFilter{Status: "open"})
		require.NoError(t, err)
		require.Len(t, tickets, 2)
		assert.NotEqual(t, second.ID, tickets[0].ID)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		_, err := env.service.ListTickets(ctx, env.admin, TicketListFilter{Status: "archived"})
		require.Error(t, err)
	})

	_ = first

	t.Run("get enforces view policy", func(t *testing.T) {
		stranger := &domain.User{ID: "customer-3", Role: domain.RoleCustomer, IsActive: true}
		_, err := env.service.GetTicket(ctx, stranger, first.ID)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

		ticket, err := env.service.GetTicket(ctx, env.customer, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, ticket.ID)
	})
}

func TestCreateTicketInvalidatesCaches(t *testing.T) {
	ctx := context.Background()
	env := newTicketEnv()

	// Warm the open list and statistics entries.
	require.NoError(t, env.cache.Set(ctx, cache.OpenTicketsKey(), []domain.Ticket{}, time.Minute))
	require.NoError(t, env.cache.Set(ctx, cache.StatisticsKey(), Statistics{}, time.Minute))

	_ = env.createTicket(t)

	deleted := env.cache.deletedKeys()
	assert.Contains(t, deleted, cache.OpenTicketsKey())
	assert.Contains(t, deleted, cache.StatisticsKey())
	assert.Contains(t, deleted, cache.CustomerTicketsKey(env.customer.ID))
}
