package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/events"
	"github.com/supportdesk/helpdesk-service/internal/observability"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	"github.com/supportdesk/helpdesk-service/internal/service"
)

// StaleMonitor periodically sweeps active tickets that nobody has responded
// to within the stale threshold. Assigned tickets get a reminder to their
// agent; unassigned tickets are pushed back through the assignment engine,
// which makes the system self-healing when agents come online later.
type StaleMonitor struct {
	tickets     repository.TicketRepository
	assignments *service.AssignmentService
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger

	interval   time.Duration
	staleAfter time.Duration
}

// StaleMonitorDependencies bundles collaborators.
type StaleMonitorDependencies struct {
	TicketRepo  repository.TicketRepository
	Assignments *service.AssignmentService
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	Interval    time.Duration
	StaleAfter  time.Duration
}

// NewStaleMonitor constructs the monitor.
func NewStaleMonitor(deps StaleMonitorDependencies) *StaleMonitor {
	interval := deps.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	staleAfter := deps.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 24 * time.Hour
	}
	return &StaleMonitor{
		tickets:     deps.TicketRepo,
		assignments: deps.Assignments,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		interval:    interval,
		staleAfter:  staleAfter,
	}
}

// Run executes sweeps on the configured interval until ctx is cancelled.
func (m *StaleMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				m.logger.Error("stale sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep processes every currently stale ticket once. Per-ticket failures
// are logged and do not stop the pass.
func (m *StaleMonitor) Sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-m.staleAfter)
	stale, err := m.tickets.ListStale(ctx, cutoff)
	if err != nil {
		return err
	}
	m.metrics.RecordSweep(len(stale))

	for i := range stale {
		ticket := &stale[i]
		if ticket.AssigneeID != nil {
			m.remind(ctx, ticket)
			continue
		}
		if _, err := m.assignments.AutoAssign(ctx, ticket.ID); err != nil {
			m.logger.Warn("stale sweep assignment failed",
				zap.String("ticket_id", ticket.ID),
				zap.Error(err))
		}
	}
	return nil
}

func (m *StaleMonitor) remind(ctx context.Context, ticket *domain.Ticket) {
	if m.dispatcher == nil {
		return
	}
	_ = m.dispatcher.Publish(ctx, events.Event{
		ID:          uuid.NewString(),
		Type:        events.EventStaleReminder,
		TicketID:    ticket.ID,
		RecipientID: *ticket.AssigneeID,
		Timestamp:   time.Now(),
		Payload: events.StaleReminderPayload{
			AgentID:         *ticket.AssigneeID,
			LastRespondedAt: ticket.LastRespondedAt,
		},
	})
}
