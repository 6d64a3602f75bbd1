package repository // repository defines data access for the lot hierarchy

import (
	"context" // context allows query cancellation and timeouts

	"github.com/iliyamo/parking-lot/internal/database"
	"github.com/iliyamo/parking-lot/internal/model"
)

// LotRepo reads floors, rows and slots.  The three lists are fetched
// separately and assembled by the caller, which keeps each query a
// plain indexed scan.
type LotRepo struct {
	db *database.DB
}

// NewLotRepo constructs a LotRepo with the given DB handle.
func NewLotRepo(db *database.DB) *LotRepo {
	return &LotRepo{db: db}
}

// ListFloors returns all floors ordered by id.
func (r *LotRepo) ListFloors(ctx context.Context) ([]model.Floor, error) {
	const q = `SELECT floor_id, floor_name, capacity FROM floors ORDER BY floor_id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Floor
	for rows.Next() {
		var f model.Floor
		if err := rows.Scan(&f.ID, &f.Name, &f.Capacity); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// ListRows returns all rows ordered by floor then id.
func (r *LotRepo) ListRows(ctx context.Context) ([]model.Row, error) {
	const q = `SELECT row_id, floor_id, row_name FROM lot_rows ORDER BY floor_id, row_id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Row
	for rows.Next() {
		var rw model.Row
		if err := rows.Scan(&rw.ID, &rw.FloorID, &rw.Name); err != nil {
			return nil, err
		}
		result = append(result, rw)
	}
	return result, rows.Err()
}

// ListSlots returns every slot ordered by row then id.
func (r *LotRepo) ListSlots(ctx context.Context) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots ORDER BY row_id, slot_id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
