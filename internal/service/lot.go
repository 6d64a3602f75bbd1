package service

import "github.com/iliyamo/parking-lot/internal/model"

// BuildLotView assembles the Floor → Row → Slot hierarchy and its
// aggregates.  Input order is preserved.  Rows and slots whose parent is
// missing are left out.
func BuildLotView(floors []model.Floor, rows []model.Row, slots []model.Slot) model.LotView {
	slotsByRow := make(map[uint64][]model.Slot, len(rows))
	for _, s := range slots {
		slotsByRow[s.RowID] = append(slotsByRow[s.RowID], s)
	}
	rowsByFloor := make(map[uint64][]model.Row, len(floors))
	for _, r := range rows {
		rowsByFloor[r.FloorID] = append(rowsByFloor[r.FloorID], r)
	}

	view := model.LotView{Floors: make([]model.FloorView, 0, len(floors))}
	for _, f := range floors {
		fv := model.FloorView{ID: f.ID, Name: f.Name, Rows: make([]model.RowView, 0, len(rowsByFloor[f.ID]))}
		inService := 0
		for _, r := range rowsByFloor[f.ID] {
			rs := slotsByRow[r.ID]
			if rs == nil {
				rs = []model.Slot{}
			}
			for _, s := range rs {
				switch s.Status {
				case model.SlotOccupied:
					fv.Occupancy++
					inService++
				case model.SlotFree:
					inService++
				}
			}
			fv.Rows = append(fv.Rows, model.RowView{ID: r.ID, Name: r.Name, Slots: rs})
		}

		fv.Capacity = inService
		if f.Capacity.Valid {
			fv.Capacity = int(f.Capacity.Int64)
		}
		fv.Availability = max(fv.Capacity-fv.Occupancy, 0)

		view.TotalCapacity += fv.Capacity
		view.TotalOccupancy += fv.Occupancy
		view.TotalAvailability += fv.Availability
		view.Floors = append(view.Floors, fv)
	}
	return view
}

func countByStatus(slots []model.Slot) map[model.SlotStatus]int {
	counts := make(map[model.SlotStatus]int, 3)
	for _, s := range slots {
		counts[s.Status]++
	}
	return counts
}
