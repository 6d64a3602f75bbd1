package model

import "gopkg.in/guregu/null.v4"

// Floor mirrors the floors table.  Capacity is optional; when unset the
// lot view derives it from the floor's in-service slots.
type Floor struct {
	ID       uint64   // floors.floor_id
	Name     string   // floors.floor_name
	Capacity null.Int // floors.capacity
}

// Row mirrors the lot_rows table.
type Row struct {
	ID      uint64 // lot_rows.row_id
	FloorID uint64 // lot_rows.floor_id
	Name    string // lot_rows.row_name
}

// LotView is the hierarchical snapshot returned by GET /parking_lot.
type LotView struct {
	Floors            []FloorView `json:"floors"`
	TotalCapacity     int         `json:"total_capacity"`
	TotalOccupancy    int         `json:"total_occupancy"`
	TotalAvailability int         `json:"total_availability"`
}

type FloorView struct {
	ID           uint64    `json:"floor_id"`
	Name         string    `json:"floor_name"`
	Capacity     int       `json:"capacity"`
	Occupancy    int       `json:"occupancy"`
	Availability int       `json:"availability"`
	Rows         []RowView `json:"rows"`
}

type RowView struct {
	ID    uint64 `json:"row_id"`
	Name  string `json:"row_name"`
	Slots []Slot `json:"slots"`
}
