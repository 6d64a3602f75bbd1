package model

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// ParkingSession is the audit record for one ticket.  It is created when a
// slot becomes occupied and closed (EndTime set) exactly once on release;
// sessions are never deleted.
//
// Fields:
//  TicketID     – primary key, also stamped on the slot while open.
//  SlotID       – slot the ticket was issued for.
//  VehicleRegNo – registration snapshot at issuance.
//  StartTime    – issuance time (UTC).
//  EndTime      – release time, null while open.
//  UserID       – requesting user, when given.
type ParkingSession struct {
	TicketID     string    `json:"ticket_id"`
	SlotID       uint64    `json:"slot_id"`
	VehicleRegNo string    `json:"vehicle_reg_no"`
	StartTime    time.Time `json:"start_time"`
	EndTime      null.Time `json:"end_time"`
	UserID       null.Int  `json:"user_id"`
}
