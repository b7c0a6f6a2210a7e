package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/helpdesk-service/internal/api/dto"
	"github.com/supportdesk/helpdesk-service/internal/service"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util"
)

// DashboardHandler serves the cached dashboard views.
type DashboardHandler struct {
	cache *service.TicketCacheService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(cache *service.TicketCacheService) *DashboardHandler {
	return &DashboardHandler{cache: cache}
}

// GetStatistics GET /dashboard/statistics.
func (h *DashboardHandler) GetStatistics(c *fiber.Ctx) error {
	stats, err := h.cache.GetStatistics(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ToStatisticsResponse(stats)})
}

// GetOpenTickets GET /dashboard/tickets/open.
func (h *DashboardHandler) GetOpenTickets(c *fiber.Ctx) error {
	tickets, err := h.cache.GetOpenTickets(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ToTicketResponses(tickets)})
}

// GetMyQueue GET /dashboard/tickets/queue. Returns the acting agent's
// active tickets, highest priority first.
func (h *DashboardHandler) GetMyQueue(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if !actor.IsAgent() && !actor.IsAdmin() {
		return apperrors.NewForbidden("agent role required")
	}
	tickets, err := h.cache.GetAgentTickets(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ToTicketResponses(tickets)})
}

// GetMyTickets GET /dashboard/tickets/mine. Returns the acting customer's
// tickets with public comments.
func (h *DashboardHandler) GetMyTickets(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	items, err := h.cache.GetCustomerTickets(c.UserContext(), actor.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ToCustomerTicketResponses(items)})
}
