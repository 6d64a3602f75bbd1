package queue

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSessionLine(t *testing.T) {
	uid := int64(5)
	opened := SessionEvent{
		Type: SessionOpened, TicketID: "TICKET-20240101120000-3", SlotID: 3, VehicleRegNo: "KA01AB1234",
		UserID: &uid, StartTime: "2024-01-01T12:00:00Z", OccurredAt: "2024-01-01T12:00:00Z",
	}
	line, err := formatSessionLine(opened)
	require.NoError(t, err)
	assert.Equal(t, "[2024-01-01T12:00:00Z] Car parked | ticket=TICKET-20240101120000-3 | slot_id=3 | vehicle=\"KA01AB1234\" | user_id=5 | start=2024-01-01T12:00:00Z\n", line)

	closed := opened
	closed.Type = SessionClosed
	closed.UserID = nil
	closed.EndTime = "2024-01-01T13:30:00Z"
	closed.DurationSeconds = 5400
	line, err = formatSessionLine(closed)
	require.NoError(t, err)
	assert.Contains(t, line, "Car released")
	assert.Contains(t, line, "user_id=-")
	assert.Contains(t, line, "duration=1h30m0s")

	_, err = formatSessionLine(SessionEvent{Type: "session.unknown"})
	assert.Error(t, err)
}

func TestHandleMessageAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	body := []byte(`{"type":"session.opened","ticket_id":"T-1","slot_id":1,"vehicle_reg_no":"KA01","occurred_at":"now"}`)

	require.NoError(t, handleMessage(dir, body))
	require.NoError(t, handleMessage(dir, body))

	b, err := os.ReadFile(filepath.Join(dir, "parking.log"))
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(string(b)))
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	assert.Error(t, handleMessage(t.TempDir(), []byte("not json")))
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.PublishSession(context.Background(), SessionEvent{}))
}

func countLines(s string) int {
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}
