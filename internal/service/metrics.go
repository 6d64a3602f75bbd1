package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iliyamo/parking-lot/internal/model"
)

var (
	carsParkedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parking_cars_parked_total",
			Help: "Total number of tickets issued",
		},
	)

	carsReleasedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "parking_cars_released_total",
			Help: "Total number of tickets released",
		},
	)

	allocationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parking_allocation_failures_total",
			Help: "Rejected parking requests by reason",
		},
		[]string{"reason"},
	)

	slotsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "parking_slots",
			Help: "Slots by status as of the last lot listing",
		},
		[]string{"status"},
	)
)

func recordSlotCounts(counts map[model.SlotStatus]int) {
	for _, st := range []model.SlotStatus{model.SlotFree, model.SlotOccupied, model.SlotOutOfService} {
		slotsByStatus.WithLabelValues(st.String()).Set(float64(counts[st]))
	}
}
