package model

import (
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v4"
)

// SlotStatus is the tri-state occupancy flag stored in slots.status.
// The numeric values are part of the schema; the JSON form is the name.
type SlotStatus int16

const (
	SlotOccupied     SlotStatus = 0
	SlotFree         SlotStatus = 1
	SlotOutOfService SlotStatus = 2
)

func (s SlotStatus) String() string {
	switch s {
	case SlotOccupied:
		return "OCCUPIED"
	case SlotFree:
		return "FREE"
	case SlotOutOfService:
		return "OUT_OF_SERVICE"
	}
	return fmt.Sprintf("SlotStatus(%d)", int16(s))
}

// Valid reports whether s is one of the known states.
func (s SlotStatus) Valid() bool {
	return s == SlotOccupied || s == SlotFree || s == SlotOutOfService
}

func (s SlotStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid slot status %d", int16(s))
	}
	return []byte(s.String()), nil
}

func (s *SlotStatus) UnmarshalText(b []byte) error {
	v, err := ParseSlotStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSlotStatus accepts the JSON names case-insensitively.
func ParseSlotStatus(s string) (SlotStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OCCUPIED":
		return SlotOccupied, nil
	case "FREE":
		return SlotFree, nil
	case "OUT_OF_SERVICE":
		return SlotOutOfService, nil
	}
	return 0, fmt.Errorf("unknown slot status %q", s)
}

// Slot is the unit of occupancy.  VehicleRegNo, TicketID and UserID are
// set exactly while the slot is occupied.
//
// Fields:
//  ID           – primary key identifier.
//  RowID        – row to which this slot belongs.
//  Name         – display name (e.g. "A1").
//  Status       – FREE, OCCUPIED or OUT_OF_SERVICE.
//  VehicleRegNo – registration of the parked vehicle.
//  TicketID     – ticket of the open parking session.
//  UserID       – user who parked, when known.
type Slot struct {
	ID           uint64      `json:"slot_id"`        // slots.slot_id
	RowID        uint64      `json:"row_id"`         // slots.row_id
	Name         string      `json:"slot_name"`      // slots.slot_name
	Status       SlotStatus  `json:"status"`         // slots.status
	VehicleRegNo null.String `json:"vehicle_reg_no"` // slots.vehicle_reg_no
	TicketID     null.String `json:"ticket_id"`      // slots.ticket_id
	UserID       null.Int    `json:"user_id"`        // slots.user_id
}
