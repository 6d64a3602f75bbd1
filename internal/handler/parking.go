package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/parking-lot/internal/model"
	"github.com/iliyamo/parking-lot/internal/service"
)

const (
	defaultSessionLimit = 100
	maxSessionLimit     = 1000
)

// ParkingService is the slot lifecycle used by ParkingHandler.
type ParkingService interface {
	Park(ctx context.Context, req service.ParkRequest) (service.Ticket, error)
	ParkAtSlot(ctx context.Context, slotID uint64, vehicleRegNo string, userID *uint64) (service.Ticket, error)
	Release(ctx context.Context, ticket string) error
	Lot(ctx context.Context) (model.LotView, error)
	SetSlotStatus(ctx context.Context, slotID uint64, status model.SlotStatus) error
	ListSessions(ctx context.Context, open *bool, limit int) ([]model.ParkingSession, error)
	GetSession(ctx context.Context, ticket string) (model.ParkingSession, error)
}

// ParkingHandler serves the lot, parking and session endpoints.  Requests
// are validated for shape here; business rules live in the service.
type ParkingHandler struct {
	Parking ParkingService
	Log     logrus.FieldLogger
}

// NewParkingHandler panics on a nil service.
func NewParkingHandler(svc ParkingService, log logrus.FieldLogger) *ParkingHandler {
	if svc == nil {
		panic("nil service passed to NewParkingHandler")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ParkingHandler{Parking: svc, Log: log}
}

type parkRequest struct {
	VehicleRegNo string  `json:"vehicle_reg_no"`
	SlotID       *uint64 `json:"slot_id" validate:"omitnil,gt=0"`
	UserID       *uint64 `json:"user_id" validate:"omitnil,gt=0"`
}

type ticketResponse struct {
	Message  string `json:"message"`
	TicketID string `json:"ticket_id"`
	SlotID   uint64 `json:"slot_id"`
}

// Lot handles GET /parking_lot.
func (h *ParkingHandler) Lot(c echo.Context) error {
	view, err := h.Parking.Lot(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, view)
}

// ParkCar handles POST /park_car.  With slot_id the given slot is claimed,
// otherwise the first free one.  Returns 201 with the ticket.
func (h *ParkingHandler) ParkCar(c echo.Context) error {
	var req parkRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}
	t, err := h.Parking.Park(c.Request().Context(), service.ParkRequest{
		VehicleRegNo: req.VehicleRegNo,
		SlotID:       req.SlotID,
		UserID:       req.UserID,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, ticketResponse{Message: "Car parked successfully", TicketID: t.ID, SlotID: t.SlotID})
}

// ParkAtSlot handles POST /slots/:id/park.
func (h *ParkingHandler) ParkAtSlot(c echo.Context) error {
	slotID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	var req parkRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}
	t, err := h.Parking.ParkAtSlot(c.Request().Context(), slotID, req.VehicleRegNo, req.UserID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, ticketResponse{Message: "Car parked successfully", TicketID: t.ID, SlotID: t.SlotID})
}

// RemoveCarByTicket handles DELETE /remove_car_by_ticket.  The ticket is
// read from ?ticket_id= first, then from a JSON body {"ticket_id": ...}.
func (h *ParkingHandler) RemoveCarByTicket(c echo.Context) error {
	ticket := strings.TrimSpace(c.QueryParam("ticket_id"))
	if ticket == "" && c.Request().ContentLength != 0 {
		var body struct {
			TicketID string `json:"ticket_id"`
		}
		if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
			return badRequest(c, "invalid request body")
		}
		ticket = body.TicketID
	}
	if err := h.Parking.Release(c.Request().Context(), ticket); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Car removed successfully"})
}

// SetSlotStatus handles PUT /slots/:id/status with {"status": "FREE"|"OUT_OF_SERVICE"}.
func (h *ParkingHandler) SetSlotStatus(c echo.Context) error {
	slotID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid slot id")
	}
	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(c, validationMessage(err))
	}
	status, err := model.ParseSlotStatus(req.Status)
	if err != nil {
		return respondError(c, h.Log, service.ErrInvalidStatus)
	}
	if err := h.Parking.SetSlotStatus(c.Request().Context(), slotID, status); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Slot status updated"})
}

// ListSessions handles GET /parking_sessions?open=true|false&limit=n.
func (h *ParkingHandler) ListSessions(c echo.Context) error {
	var open *bool
	if v := c.QueryParam("open"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "open must be true or false")
		}
		open = &b
	}
	limit := defaultSessionLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return badRequest(c, "limit must be a positive integer")
		}
		limit = min(n, maxSessionLimit)
	}
	items, err := h.Parking.ListSessions(c.Request().Context(), open, limit)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetSession handles GET /parking_sessions/:ticket_id.
func (h *ParkingHandler) GetSession(c echo.Context) error {
	sess, err := h.Parking.GetSession(c.Request().Context(), c.Param("ticket_id"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, sess)
}
