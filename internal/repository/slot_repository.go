package repository // repository defines data access for slots

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sql.ErrNoRows checks

	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/parking-lot/internal/database"
	"github.com/iliyamo/parking-lot/internal/model"
)

const slotColumns = `slot_id, row_id, slot_name, status, vehicle_reg_no, ticket_id, user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(rs rowScanner) (model.Slot, error) {
	var s model.Slot
	err := rs.Scan(&s.ID, &s.RowID, &s.Name, &s.Status, &s.VehicleRegNo, &s.TicketID, &s.UserID)
	return s, err
}

// SlotRepo provides methods to work with slots.  State transitions are
// only offered as ...Tx methods so the caller can pair them with the
// matching parking_sessions write in one transaction.
type SlotRepo struct {
	db *database.DB
}

// NewSlotRepo constructs a SlotRepo with the given DB handle.
func NewSlotRepo(db *database.DB) *SlotRepo {
	return &SlotRepo{db: db}
}

// FirstFreeForUpdateTx locks the lowest-id FREE slot.  Rows already locked
// by a concurrent allocation are skipped rather than waited on, so two
// callers never race for the same slot.
func (r *SlotRepo) FirstFreeForUpdateTx(ctx context.Context, tx *sql.Tx) (model.Slot, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + slotColumns + ` FROM slots
	           WHERE status = ?
	           ORDER BY slot_id
	           LIMIT 1
	           FOR UPDATE SKIP LOCKED`)
	return r.one(tx.QueryRowContext(ctx, q, model.SlotFree))
}

// GetByIDForUpdateTx locks a slot by id.
func (r *SlotRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Slot, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + slotColumns + ` FROM slots WHERE slot_id = ? FOR UPDATE`)
	return r.one(tx.QueryRowContext(ctx, q, id))
}

// GetByTicketForUpdateTx locks the slot currently holding ticket.
func (r *SlotRepo) GetByTicketForUpdateTx(ctx context.Context, tx *sql.Tx, ticket string) (model.Slot, error) {
	q := r.db.Dialect.Rebind(`SELECT ` + slotColumns + ` FROM slots WHERE ticket_id = ? FOR UPDATE`)
	return r.one(tx.QueryRowContext(ctx, q, ticket))
}

// OccupyTx moves a FREE slot to OCCUPIED.  The status guard makes it a
// compare-and-set: ErrConflict when the slot is no longer FREE,
// ErrDuplicate when the ticket id is already taken.
func (r *SlotRepo) OccupyTx(ctx context.Context, tx *sql.Tx, id uint64, vehicleRegNo, ticket string, userID null.Int) error {
	q := r.db.Dialect.Rebind(`UPDATE slots
	           SET status = ?, vehicle_reg_no = ?, ticket_id = ?, user_id = ?
	           WHERE slot_id = ? AND status = ?`)
	res, err := tx.ExecContext(ctx, q, model.SlotOccupied, vehicleRegNo, ticket, userID, id, model.SlotFree)
	if err != nil {
		if database.IsDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// FreeTx clears an occupied slot.  It is guarded by the ticket so a slot
// re-occupied under another ticket is never cleared.
func (r *SlotRepo) FreeTx(ctx context.Context, tx *sql.Tx, id uint64, ticket string) error {
	q := r.db.Dialect.Rebind(`UPDATE slots
	           SET status = ?, vehicle_reg_no = NULL, ticket_id = NULL, user_id = NULL
	           WHERE slot_id = ? AND ticket_id = ?`)
	res, err := tx.ExecContext(ctx, q, model.SlotFree, id, ticket)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateStatusTx sets the status of an unoccupied slot.  Callers lock the
// slot first; the guard keeps an occupied slot from being touched.
func (r *SlotRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.SlotStatus) error {
	q := r.db.Dialect.Rebind(`UPDATE slots SET status = ? WHERE slot_id = ? AND status <> ?`)
	_, err := tx.ExecContext(ctx, q, status, id, model.SlotOccupied)
	return err
}

func (r *SlotRepo) one(row *sql.Row) (model.Slot, error) {
	s, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Slot{}, ErrNotFound
		}
		return model.Slot{}, err
	}
	return s, nil
}
