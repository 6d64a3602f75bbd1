// Package queue defines message payloads exchanged over the message broker.
package queue

// SessionsQueue is the durable queue carrying parking session events.
const SessionsQueue = "parking.sessions"

// Event types carried in SessionEvent.Type.
const (
	SessionOpened = "session.opened"
	SessionClosed = "session.closed"
)

// SessionEvent is published after a parking session is opened or closed.
// It carries enough information for downstream consumers to log or bill
// without querying the primary database.  Times are RFC 3339 UTC strings;
// EndTime and DurationSeconds are only set on session.closed.
type SessionEvent struct {
	Type            string `json:"type"`
	TicketID        string `json:"ticket_id"`
	SlotID          uint64 `json:"slot_id"`
	VehicleRegNo    string `json:"vehicle_reg_no"`
	UserID          *int64 `json:"user_id,omitempty"`
	StartTime       string `json:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty"`
	DurationSeconds int64  `json:"duration_seconds,omitempty"`
	OccurredAt      string `json:"occurred_at"`
}
