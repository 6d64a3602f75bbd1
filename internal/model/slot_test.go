package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"
)

func TestParseSlotStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    SlotStatus
		wantErr bool
	}{
		{"FREE", SlotFree, false},
		{"occupied", SlotOccupied, false},
		{" Out_Of_Service ", SlotOutOfService, false},
		{"NOT_IN_USE", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSlotStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlotStatusStorageValues(t *testing.T) {
	assert.EqualValues(t, 0, SlotOccupied)
	assert.EqualValues(t, 1, SlotFree)
	assert.EqualValues(t, 2, SlotOutOfService)
	assert.False(t, SlotStatus(7).Valid())
	assert.Equal(t, "SlotStatus(7)", SlotStatus(7).String())
}

func TestSlotJSON(t *testing.T) {
	s := Slot{ID: 4, RowID: 2, Name: "B4", Status: SlotOccupied,
		VehicleRegNo: null.StringFrom("KA01AB1234"), TicketID: null.StringFrom("TICKET-20240101120000-4")}

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"slot_id":4,"row_id":2,"slot_name":"B4","status":"OCCUPIED",
		"vehicle_reg_no":"KA01AB1234","ticket_id":"TICKET-20240101120000-4","user_id":null}`, string(b))

	var back Slot
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, SlotOccupied, back.Status)

	_, err = json.Marshal(Slot{Status: SlotStatus(9)})
	assert.Error(t, err)
}

func TestUserJSONHidesPassword(t *testing.T) {
	b, err := json.Marshal(User{ID: 1, Email: "a@b.c", PasswordHash: "$2a$10$hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.NotContains(t, string(b), "password")
}
