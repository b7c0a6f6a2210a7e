package domain

import (
	"encoding/json"
	"time"
)

// logEntryJSON is the wire/cache form of a LogEntry; Details stays raw until
// the action kind is known.
type logEntryJSON struct {
	ID        string          `json:"id"`
	TicketID  string          `json:"ticket_id"`
	UserID    *string         `json:"user_id,omitempty"`
	Action    LogAction       `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// MarshalJSON encodes the typed details payload alongside the entry.
func (e LogEntry) MarshalJSON() ([]byte, error) {
	details, err := EncodeLogDetails(e.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(logEntryJSON{
		ID:        e.ID,
		TicketID:  e.TicketID,
		UserID:    e.UserID,
		Action:    e.Action,
		Details:   details,
		CreatedAt: e.CreatedAt,
	})
}

// UnmarshalJSON restores the typed details variant from the action kind.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	var raw logEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	details, err := DecodeLogDetails(raw.Action, raw.Details)
	if err != nil {
		return err
	}
	*e = LogEntry{
		ID:        raw.ID,
		TicketID:  raw.TicketID,
		UserID:    raw.UserID,
		Action:    raw.Action,
		Details:   details,
		CreatedAt: raw.CreatedAt,
	}
	return nil
}
