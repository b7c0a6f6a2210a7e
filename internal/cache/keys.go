package cache

import "fmt"

// Key construction is centralized here so write-side invalidation and
// read-side lookups can never drift apart.

const (
	openTicketsKey = "tickets:open"
	statisticsKey  = "tickets:statistics"
)

// OpenTicketsKey is the global open-ticket list entry.
func OpenTicketsKey() string {
	return openTicketsKey
}

// AgentTicketsKey is the per-agent active work queue entry.
func AgentTicketsKey(agentID string) string {
	return fmt.Sprintf("tickets:agent:%s", agentID)
}

// CustomerTicketsKey is the per-customer ticket list entry.
func CustomerTicketsKey(customerID string) string {
	return fmt.Sprintf("tickets:customer:%s", customerID)
}

// TicketDetailKey is the single-ticket detail entry.
func TicketDetailKey(ticketID string) string {
	return fmt.Sprintf("ticket:%s:detail", ticketID)
}

// StatisticsKey is the global aggregate statistics entry.
func StatisticsKey() string {
	return statisticsKey
}
