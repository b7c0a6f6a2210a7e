package service

import (
	"context"
	"math"
	"time"

	"github.com/supportdesk/helpdesk-service/internal/cache"
	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/repository"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util"
)

// TicketCacheService fronts the hot read queries with a read-through cache.
// Every mutation path calls InvalidateTicket (and InvalidateStatistics when
// counts may have moved) so the next read recomputes from Postgres.
type TicketCacheService struct {
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	logs     repository.TicketLogRepository
	cache    cache.Cache

	ticketTTL     time.Duration
	statisticsTTL time.Duration
}

// CacheDependencies bundles the read-side collaborators.
type CacheDependencies struct {
	TicketRepo    repository.TicketRepository
	CommentRepo   repository.CommentRepository
	LogRepo       repository.TicketLogRepository
	Cache         cache.Cache
	TicketTTL     time.Duration
	StatisticsTTL time.Duration
}

// TicketDetail is the cached single-ticket view: the ticket with its full
// comment thread (created ascending) and audit log (created descending).
type TicketDetail struct {
	Ticket   domain.Ticket     `json:"ticket"`
	Comments []domain.Comment  `json:"comments"`
	Logs     []domain.LogEntry `json:"logs"`
}

// CustomerTicket is a customer's ticket with its public comments only.
type CustomerTicket struct {
	Ticket   domain.Ticket    `json:"ticket"`
	Comments []domain.Comment `json:"comments"`
}

// Statistics aggregates ticket counts and the average resolution time.
type Statistics struct {
	Total              int     `json:"total"`
	Open               int     `json:"open"`
	InProgress         int     `json:"in_progress"`
	Resolved           int     `json:"resolved"`
	Closed             int     `json:"closed"`
	HighPriority       int     `json:"high_priority"`
	AvgResolutionHours float64 `json:"avg_resolution_time"`
}

// NewTicketCacheService constructs the service.
func NewTicketCacheService(deps CacheDependencies) *TicketCacheService {
	ticketTTL := deps.TicketTTL
	if ticketTTL <= 0 {
		ticketTTL = 5 * time.Minute
	}
	statisticsTTL := deps.StatisticsTTL
	if statisticsTTL <= 0 {
		statisticsTTL = 10 * time.Minute
	}
	return &TicketCacheService{
		tickets:       deps.TicketRepo,
		comments:      deps.CommentRepo,
		logs:          deps.LogRepo,
		cache:         deps.Cache,
		ticketTTL:     ticketTTL,
		statisticsTTL: statisticsTTL,
	}
}

// GetOpenTickets returns all open tickets, newest first.
func (s *TicketCacheService) GetOpenTickets(ctx context.Context) ([]domain.Ticket, error) {
	key := cache.OpenTicketsKey()
	var cached []domain.Ticket
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	tickets, err := s.tickets.ListOpen(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	_ = s.cache.Set(ctx, key, tickets, s.ticketTTL)
	return tickets, nil
}

// GetAgentTickets returns the agent's active work queue, highest priority
// first and oldest first within a priority.
func (s *TicketCacheService) GetAgentTickets(ctx context.Context, agentID string) ([]domain.Ticket, error) {
	key := cache.AgentTicketsKey(agentID)
	var cached []domain.Ticket
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	tickets, err := s.tickets.ListActiveByAssignee(ctx, agentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	_ = s.cache.Set(ctx, key, tickets, s.ticketTTL)
	return tickets, nil
}

// GetCustomerTickets returns a customer's tickets with public comments only.
func (s *TicketCacheService) GetCustomerTickets(ctx context.Context, customerID string) ([]CustomerTicket, error) {
	key := cache.CustomerTicketsKey(customerID)
	var cached []CustomerTicket
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	tickets, err := s.tickets.ListByRequester(ctx, customerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	result := make([]CustomerTicket, 0, len(tickets))
	for _, ticket := range tickets {
		comments, err := s.comments.ListByTicket(ctx, ticket.ID, true)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		result = append(result, CustomerTicket{Ticket: ticket, Comments: comments})
	}
	_ = s.cache.Set(ctx, key, result, s.ticketTTL)
	return result, nil
}

// GetTicketDetail returns the full detail view for one ticket.
func (s *TicketCacheService) GetTicketDetail(ctx context.Context, ticketID string) (*TicketDetail, error) {
	key := cache.TicketDetailKey(ticketID)
	var cached TicketDetail
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID, false)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	logs, err := s.logs.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	detail := TicketDetail{Ticket: *ticket, Comments: comments, Logs: logs}
	_ = s.cache.Set(ctx, key, detail, s.ticketTTL)
	return &detail, nil
}

// GetStatistics returns aggregate ticket counts plus the average resolution
// time in hours, cached under the longer statistics TTL.
func (s *TicketCacheService) GetStatistics(ctx context.Context) (*Statistics, error) {
	key := cache.StatisticsKey()
	var cached Statistics
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}
	counts, err := s.tickets.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	samples, err := s.tickets.ListResolutionSamples(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	stats := Statistics{
		Total:              counts.Total,
		Open:               counts.Open,
		InProgress:         counts.InProgress,
		Resolved:           counts.Resolved,
		Closed:             counts.Closed,
		HighPriority:       counts.HighPriority,
		AvgResolutionHours: averageResolutionHours(samples),
	}
	_ = s.cache.Set(ctx, key, stats, s.statisticsTTL)
	return &stats, nil
}

// InvalidateTicket drops every cache entry a mutation of ticket may have
// staled: the ticket's detail, the global open list, the requester's list,
// and the agent queues of both the current and the previous assignee.
func (s *TicketCacheService) InvalidateTicket(ctx context.Context, ticket *domain.Ticket, previousAssignee *string) {
	keys := []string{
		cache.TicketDetailKey(ticket.ID),
		cache.OpenTicketsKey(),
		cache.CustomerTicketsKey(ticket.RequesterID),
	}
	if ticket.AssigneeID != nil {
		keys = append(keys, cache.AgentTicketsKey(*ticket.AssigneeID))
	}
	if previousAssignee != nil && (ticket.AssigneeID == nil || *previousAssignee != *ticket.AssigneeID) {
		keys = append(keys, cache.AgentTicketsKey(*previousAssignee))
	}
	_ = s.cache.Delete(ctx, keys...)
}

// InvalidateStatistics drops the aggregate counters; called whenever ticket
// counts could have changed (creation, status change).
func (s *TicketCacheService) InvalidateStatistics(ctx context.Context) {
	_ = s.cache.Delete(ctx, cache.StatisticsKey())
}

// averageResolutionHours is the mean of whole-hour resolution deltas over
// all tickets ever resolved, rounded to two decimals; zero without samples.
func averageResolutionHours(samples []repository.ResolutionSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var totalHours int64
	for _, sample := range samples {
		totalHours += int64(sample.ResolvedAt.Sub(sample.CreatedAt) / time.Hour)
	}
	mean := float64(totalHours) / float64(len(samples))
	return math.Round(mean*100) / 100
}
