package service

import (
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"
)

const ticketPrefix = "TICKET"

// NewTicketID formats TICKET-<yyyymmddHHMMSS UTC>-<slot id>.  The id is
// unique as long as one slot is not issued two tickets within a second.
func NewTicketID(now time.Time, slotID uint64) string {
	return fmt.Sprintf("%s-%s-%d", ticketPrefix, now.UTC().Format("20060102150405"), slotID)
}

// Ticket is the result of a successful allocation.
type Ticket struct {
	ID           string
	SlotID       uint64
	VehicleRegNo string
	UserID       null.Int
	IssuedAt     time.Time
}
