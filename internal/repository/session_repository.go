package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/parking-lot/internal/database"
	"github.com/iliyamo/parking-lot/internal/model"
)

const sessionColumns = `ticket_id, slot_id, vehicle_reg_no, start_time, end_time, user_id`

// SessionRepo persists parking sessions.  Rows are only ever inserted and
// closed; nothing here deletes or reopens a session.
type SessionRepo struct {
	db *database.DB
}

func NewSessionRepo(db *database.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// SessionFilter narrows List.  A nil Open returns both open and closed
// sessions.
type SessionFilter struct {
	Open  *bool
	Limit int
}

// CreateTx inserts an open session.  ErrDuplicate when the ticket exists.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.ParkingSession) error {
	q := r.db.Dialect.Rebind(`INSERT INTO parking_sessions (ticket_id, slot_id, vehicle_reg_no, start_time, user_id)
	           VALUES (?, ?, ?, ?, ?)`)
	_, err := tx.ExecContext(ctx, q, s.TicketID, s.SlotID, s.VehicleRegNo, s.StartTime, s.UserID)
	if err != nil && database.IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// CloseTx stamps end_time on the open session for ticket.  ErrNotFound
// when there is no open session, which also makes a second close a no-op
// error rather than an overwrite.
func (r *SessionRepo) CloseTx(ctx context.Context, tx *sql.Tx, ticket string, end time.Time) error {
	q := r.db.Dialect.Rebind(`UPDATE parking_sessions SET end_time = ? WHERE ticket_id = ? AND end_time IS NULL`)
	res, err := tx.ExecContext(ctx, q, end, ticket)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByTicket fetches one session.
func (r *SessionRepo) GetByTicket(ctx context.Context, ticket string) (model.ParkingSession, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + sessionColumns + ` FROM parking_sessions WHERE ticket_id = ?`)
	var s model.ParkingSession
	err := r.db.QueryRowContext(ctx, q, ticket).
		Scan(&s.TicketID, &s.SlotID, &s.VehicleRegNo, &s.StartTime, &s.EndTime, &s.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ParkingSession{}, ErrNotFound
		}
		return model.ParkingSession{}, err
	}
	return s, nil
}

// List returns sessions newest first.
func (r *SessionRepo) List(ctx context.Context, f SessionFilter) ([]model.ParkingSession, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + sessionColumns + ` FROM parking_sessions`)
	if f.Open != nil {
		if *f.Open {
			sb.WriteString(` WHERE end_time IS NULL`)
		} else {
			sb.WriteString(` WHERE end_time IS NOT NULL`)
		}
	}
	sb.WriteString(` ORDER BY start_time DESC, ticket_id`)
	var args []any
	if f.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.db.Dialect.Rebind(sb.String()), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []model.ParkingSession{}
	for rows.Next() {
		var s model.ParkingSession
		if err := rows.Scan(&s.TicketID, &s.SlotID, &s.VehicleRegNo, &s.StartTime, &s.EndTime, &s.UserID); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
