package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/parking-lot/internal/model"
)

func TestBuildLotViewEmpty(t *testing.T) {
	view := BuildLotView(nil, nil, nil)

	b, err := json.Marshal(view)
	require.NoError(t, err)
	assert.JSONEq(t, `{"floors":[],"total_capacity":0,"total_occupancy":0,"total_availability":0}`, string(b))
}

func TestBuildLotViewTwoFloors(t *testing.T) {
	floors := []model.Floor{
		{ID: 1, Name: "Ground"},
		{ID: 2, Name: "First", Capacity: null.IntFrom(5)},
	}
	rows := []model.Row{
		{ID: 10, FloorID: 1, Name: "A"},
		{ID: 11, FloorID: 1, Name: "B"},
		{ID: 20, FloorID: 2, Name: "A"},
	}
	slots := []model.Slot{
		{ID: 1, RowID: 10, Name: "A1", Status: model.SlotOccupied},
		{ID: 2, RowID: 10, Name: "A2", Status: model.SlotFree},
		{ID: 3, RowID: 11, Name: "B1", Status: model.SlotOutOfService},
		{ID: 4, RowID: 20, Name: "A1", Status: model.SlotOccupied},
		{ID: 5, RowID: 20, Name: "A2", Status: model.SlotOccupied},
	}

	view := BuildLotView(floors, rows, slots)
	require.Len(t, view.Floors, 2)

	ground := view.Floors[0]
	assert.Equal(t, 2, ground.Capacity, "out of service slots do not count")
	assert.Equal(t, 1, ground.Occupancy)
	assert.Equal(t, 1, ground.Availability)
	require.Len(t, ground.Rows, 2)
	assert.Len(t, ground.Rows[0].Slots, 2)
	assert.Len(t, ground.Rows[1].Slots, 1)

	first := view.Floors[1]
	assert.Equal(t, 5, first.Capacity)
	assert.Equal(t, 2, first.Occupancy)
	assert.Equal(t, 3, first.Availability)

	assert.Equal(t, 7, view.TotalCapacity)
	assert.Equal(t, 3, view.TotalOccupancy)
	assert.Equal(t, 4, view.TotalAvailability)

	seen := map[uint64]int{}
	for _, f := range view.Floors {
		for _, r := range f.Rows {
			for _, s := range r.Slots {
				seen[s.ID]++
			}
		}
	}
	assert.Len(t, seen, len(slots))
	for id, n := range seen {
		assert.Equal(t, 1, n, "slot %d", id)
	}
}

func TestBuildLotViewAvailabilityNeverNegative(t *testing.T) {
	floors := []model.Floor{{ID: 1, Name: "Ground", Capacity: null.IntFrom(1)}}
	rows := []model.Row{{ID: 1, FloorID: 1, Name: "A"}, {ID: 2, FloorID: 1, Name: "Empty"}}
	slots := []model.Slot{
		{ID: 1, RowID: 1, Status: model.SlotOccupied},
		{ID: 2, RowID: 1, Status: model.SlotOccupied},
	}

	view := BuildLotView(floors, rows, slots)
	assert.Equal(t, 0, view.Floors[0].Availability)
	assert.NotNil(t, view.Floors[0].Rows[1].Slots)
}

func TestNewTicketID(t *testing.T) {
	at := time.Date(2024, 3, 9, 7, 5, 1, 0, time.FixedZone("IST", 5*3600+1800))
	assert.Equal(t, "TICKET-20240309013501-42", NewTicketID(at, 42))
}

func TestErrorKinds(t *testing.T) {
	assert.ErrorIs(t, ErrNoSlotAvailable, ErrConflict)
	assert.NotErrorIs(t, ErrNoSlotAvailable, ErrNotFound)
	assert.Equal(t, "slot not found", PublicMessage(ErrSlotNotFound))
	assert.Equal(t, "internal error", PublicMessage(errors.New("raw driver text")))

	err := persistence("commit", errors.New("broken pipe"))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "broken pipe")
	assert.Equal(t, "internal error", PublicMessage(err))
}
