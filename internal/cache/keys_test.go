package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "tickets:open", OpenTicketsKey())
	assert.Equal(t, "tickets:statistics", StatisticsKey())
	assert.Equal(t, "tickets:agent:agent-1", AgentTicketsKey("agent-1"))
	assert.Equal(t, "tickets:customer:customer-9", CustomerTicketsKey("customer-9"))
	assert.Equal(t, "ticket:ticket-7:detail", TicketDetailKey("ticket-7"))
}
