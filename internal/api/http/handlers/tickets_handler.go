package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/supportdesk/helpdesk-service/internal/api/dto"
	"github.com/supportdesk/helpdesk-service/internal/auth"
	"github.com/supportdesk/helpdesk-service/internal/domain"
	"github.com/supportdesk/helpdesk-service/internal/service"
	apperrors "github.com/supportdesk/helpdesk-service/pkg/util"
)

var validate = validator.New()

func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := validate.Struct(req); err != nil {
		details := map[string]any{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		return apperrors.NewValidationError("validation failed", details)
	}
	return nil
}

func parseQuery(c *fiber.Ctx, req any) error {
	if err := c.QueryParser(req); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	if err := validate.Struct(req); err != nil {
		details := map[string]any{}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				details[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		return apperrors.NewValidationError("validation failed", details)
	}
	return nil
}

func requireActor(c *fiber.Ctx) (*domain.User, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok || actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

// TicketsHandler manages the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	cache   *service.TicketCacheService
}

// NewTicketsHandler constructs the handler.
func NewTicketsHandler(tickets *service.TicketService, cache *service.TicketCacheService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, cache: cache}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.ToTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var query dto.ListTicketsQuery
	if err := parseQuery(c, &query); err != nil {
		return err
	}
	if query.Limit == 0 {
		query.Limit = 50
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), actor, service.TicketListFilter{
		Status:     query.Status,
		SearchTerm: query.Search,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ToTicketResponses(tickets)})
}

// GetTicket GET /tickets/:id. Returns the full detail bundle from the
// read-through cache once the view policy passes.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	detail, err := h.cache.GetTicketDetail(c.UserContext(), ticket.ID)
	if err != nil {
		return err
	}
	resp := dto.ToTicketDetailResponse(detail)
	if actor.IsCustomer() {
		resp.Comments = filterPublicComments(resp.Comments)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.AddCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	comment, err := h.tickets.AddComment(c.UserContext(), actor, c.Params("id"), req.Content, req.IsPrivate)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.ToCommentResponse(*comment)})
}

// ChangeStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ToTicketResponse(ticket)})
}

// AssignTicket POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.tickets.AssignManually(c.UserContext(), actor, c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ToTicketResponse(ticket)})
}

func filterPublicComments(comments []dto.CommentResponse) []dto.CommentResponse {
	out := make([]dto.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		if !comment.IsPrivate {
			out = append(out, comment)
		}
	}
	return out
}
