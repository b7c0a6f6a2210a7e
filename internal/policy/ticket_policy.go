package policy

import "github.com/supportdesk/helpdesk-service/internal/domain"

// Capability names an action an actor may attempt on a ticket.
type Capability string

const (
	CapabilityView         Capability = "view"
	CapabilityCreate       Capability = "create"
	CapabilityUpdate       Capability = "update"
	CapabilityChangeStatus Capability = "changeStatus"
	CapabilityAssign       Capability = "assign"
	CapabilityComment      Capability = "comment"
	CapabilityDelete       Capability = "delete"
)

// TicketPolicy is the pure decision function gating every mutation. It has
// no side effects and no hidden state; callers pass the acting user and the
// ticket explicitly.
type TicketPolicy struct{}

// NewTicketPolicy constructs the policy.
func NewTicketPolicy() *TicketPolicy {
	return &TicketPolicy{}
}

// Can answers whether actor holds capability on ticket. The ticket may be
// nil only for CapabilityCreate.
func (p *TicketPolicy) Can(actor *domain.User, capability Capability, ticket *domain.Ticket) bool {
	if actor == nil {
		return false
	}
	switch capability {
	case CapabilityCreate:
		return true
	case CapabilityView:
		return p.CanView(actor, ticket)
	case CapabilityUpdate:
		return p.CanUpdate(actor, ticket)
	case CapabilityChangeStatus:
		return p.CanChangeStatus(actor, ticket)
	case CapabilityAssign:
		return p.CanAssign(actor, ticket)
	case CapabilityComment:
		return p.CanComment(actor, ticket)
	case CapabilityDelete:
		return p.CanDelete(actor, ticket)
	}
	return false
}

// CanView allows admins, the assigned agent, and the requester.
func (p *TicketPolicy) CanView(actor *domain.User, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if actor.IsAgent() && isAssignee(actor, ticket) {
		return true
	}
	return ticket.RequesterID == actor.ID
}

// CanUpdate allows admins and the assigned agent only.
func (p *TicketPolicy) CanUpdate(actor *domain.User, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	return actor.IsAgent() && isAssignee(actor, ticket)
}

// CanChangeStatus allows admins and the assigned agent; the requester may
// only act while the ticket sits in resolved, which is the close path.
func (p *TicketPolicy) CanChangeStatus(actor *domain.User, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if actor.IsAgent() && isAssignee(actor, ticket) {
		return true
	}
	return ticket.RequesterID == actor.ID && ticket.Status == domain.TicketStatusResolved
}

// CanAssign is admin-only.
func (p *TicketPolicy) CanAssign(actor *domain.User, ticket *domain.Ticket) bool {
	return actor.IsAdmin()
}

// CanComment allows admins, the requester, and agents that either hold the
// ticket or could claim it (open and unassigned).
func (p *TicketPolicy) CanComment(actor *domain.User, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if actor.IsAgent() && (isAssignee(actor, ticket) || (ticket.IsOpen() && ticket.AssigneeID == nil)) {
		return true
	}
	return ticket.RequesterID == actor.ID
}

// CanDelete is admin-only.
func (p *TicketPolicy) CanDelete(actor *domain.User, ticket *domain.Ticket) bool {
	return actor.IsAdmin()
}

func isAssignee(actor *domain.User, ticket *domain.Ticket) bool {
	return ticket.AssigneeID != nil && *ticket.AssigneeID == actor.ID
}
