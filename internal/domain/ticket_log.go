package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// LogAction identifies what a log entry records.
type LogAction string

const (
	LogActionCreated          LogAction = "created"
	LogActionStatusChanged    LogAction = "status_changed"
	LogActionAssigned         LogAction = "assigned"
	LogActionManuallyAssigned LogAction = "manually_assigned"
	LogActionAddedComment     LogAction = "added_comment"
	LogActionAddedPrivateNote LogAction = "added_private_note"
)

// LogDetails is the payload variant attached to a log entry. The concrete
// type is determined by the entry's action; created and comment actions
// carry no details.
type LogDetails interface {
	logDetails()
}

// StatusChangeDetails records a status transition.
type StatusChangeDetails struct {
	From TicketStatus `json:"from"`
	To   TicketStatus `json:"to"`
}

func (StatusChangeDetails) logDetails() {}

// AssignmentDetails records an automatic assignment.
type AssignmentDetails struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

func (AssignmentDetails) logDetails() {}

// ManualAssignmentDetails records an admin-driven assignment.
type ManualAssignmentDetails struct {
	AgentID string `json:"agent_id"`
}

func (ManualAssignmentDetails) logDetails() {}

// LogEntry is an append-only audit record for a ticket. UserID is nil for
// system-originated entries such as auto-assignment.
type LogEntry struct {
	ID        string
	TicketID  string
	UserID    *string
	Action    LogAction
	Details   LogDetails
	CreatedAt time.Time
}

// EncodeLogDetails serializes a details payload for storage. A nil payload
// yields nil bytes.
func EncodeLogDetails(details LogDetails) ([]byte, error) {
	if details == nil {
		return nil, nil
	}
	return json.Marshal(details)
}

// DecodeLogDetails restores the typed payload for an action kind.
func DecodeLogDetails(action LogAction, raw []byte) (LogDetails, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch action {
	case LogActionStatusChanged:
		var d StatusChangeDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case LogActionAssigned:
		var d AssignmentDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case LogActionManuallyAssigned:
		var d ManualAssignmentDetails
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case LogActionCreated, LogActionAddedComment, LogActionAddedPrivateNote:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown log action %q", action)
}
