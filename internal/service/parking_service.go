// Package service holds the slot lifecycle: allocation, release, the lot
// snapshot and slot maintenance.  Every mutation runs in one database
// transaction that pairs the slot write with its parking_sessions write.
package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"gopkg.in/guregu/null.v4"

	"github.com/iliyamo/parking-lot/internal/database"
	"github.com/iliyamo/parking-lot/internal/model"
	"github.com/iliyamo/parking-lot/internal/queue"
	"github.com/iliyamo/parking-lot/internal/repository"
)

const (
	maxVehicleRegLen = 20
	publishTimeout   = 5 * time.Second
)

// EventPublisher delivers session events.  Publishing is best effort: a
// failure is logged and never undoes a committed session.
type EventPublisher interface {
	PublishSession(ctx context.Context, ev queue.SessionEvent) error
}

// ParkRequest is the input of Park.  A nil SlotID selects the first free
// slot.
type ParkRequest struct {
	VehicleRegNo string
	SlotID       *uint64
	UserID       *uint64
}

// ParkingService coordinates the slot and session repositories.
type ParkingService struct {
	db       *database.DB
	lots     *repository.LotRepo
	slots    *repository.SlotRepo
	sessions *repository.SessionRepo
	users    *repository.UserRepo
	events   EventPublisher
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewParkingService wires the service.  events may be nil.
func NewParkingService(db *database.DB, lots *repository.LotRepo, slots *repository.SlotRepo,
	sessions *repository.SessionRepo, users *repository.UserRepo, events EventPublisher, log logrus.FieldLogger) *ParkingService {
	if db == nil || lots == nil || slots == nil || sessions == nil || users == nil {
		panic("nil dependency passed to NewParkingService")
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ParkingService{
		db: db, lots: lots, slots: slots, sessions: sessions, users: users,
		events: events, log: log, now: time.Now,
	}
}

// Park dispatches to ParkAtSlot when a slot is given, else ParkFirstFree.
func (s *ParkingService) Park(ctx context.Context, req ParkRequest) (Ticket, error) {
	if req.SlotID != nil {
		return s.ParkAtSlot(ctx, *req.SlotID, req.VehicleRegNo, req.UserID)
	}
	return s.ParkFirstFree(ctx, req.VehicleRegNo, req.UserID)
}

// ParkFirstFree claims the lowest-id FREE slot.
func (s *ParkingService) ParkFirstFree(ctx context.Context, vehicleRegNo string, userID *uint64) (Ticket, error) {
	return s.park(ctx, vehicleRegNo, userID, func(ctx context.Context, tx *sql.Tx) (model.Slot, error) {
		slot, err := s.slots.FirstFreeForUpdateTx(ctx, tx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return model.Slot{}, ErrNoSlotAvailable
			}
			return model.Slot{}, persistence("select free slot", err)
		}
		return slot, nil
	})
}

// ParkAtSlot claims a specific slot, which must be FREE.
func (s *ParkingService) ParkAtSlot(ctx context.Context, slotID uint64, vehicleRegNo string, userID *uint64) (Ticket, error) {
	return s.park(ctx, vehicleRegNo, userID, func(ctx context.Context, tx *sql.Tx) (model.Slot, error) {
		slot, err := s.slots.GetByIDForUpdateTx(ctx, tx, slotID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return model.Slot{}, ErrSlotNotFound
			}
			return model.Slot{}, persistence("lock slot", err)
		}
		if slot.Status != model.SlotFree {
			return model.Slot{}, ErrSlotNotFree
		}
		return slot, nil
	})
}

type slotPicker func(ctx context.Context, tx *sql.Tx) (model.Slot, error)

func (s *ParkingService) park(ctx context.Context, vehicleRegNo string, userID *uint64, pick slotPicker) (Ticket, error) {
	reg, err := normalizeVehicleReg(vehicleRegNo)
	if err != nil {
		return Ticket{}, err
	}
	var uid null.Int
	if userID != nil {
		uid = null.IntFrom(int64(*userID))
	}

	var t Ticket
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if userID != nil {
			ok, err := s.users.ExistsTx(ctx, tx, *userID)
			if err != nil {
				return persistence("check user", err)
			}
			if !ok {
				return ErrUserNotFound
			}
		}

		slot, err := pick(ctx, tx)
		if err != nil {
			return err
		}

		now := s.now().UTC().Truncate(time.Second)
		ticket := NewTicketID(now, slot.ID)
		if err := s.slots.OccupyTx(ctx, tx, slot.ID, reg, ticket, uid); err != nil {
			switch {
			case errors.Is(err, repository.ErrConflict):
				return ErrSlotNotFree
			case errors.Is(err, repository.ErrDuplicate):
				return ErrTicketCollision
			}
			return persistence("occupy slot", err)
		}

		sess := &model.ParkingSession{TicketID: ticket, SlotID: slot.ID, VehicleRegNo: reg, StartTime: now, UserID: uid}
		if err := s.sessions.CreateTx(ctx, tx, sess); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrTicketCollision
			}
			return persistence("create session", err)
		}
		t = Ticket{ID: ticket, SlotID: slot.ID, VehicleRegNo: reg, UserID: uid, IssuedAt: now}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			allocationFailuresTotal.WithLabelValues(failureReason(err)).Inc()
		}
		return Ticket{}, err
	}

	carsParkedTotal.Inc()
	s.publish(ctx, queue.SessionEvent{
		Type:         queue.SessionOpened,
		TicketID:     t.ID,
		SlotID:       t.SlotID,
		VehicleRegNo: t.VehicleRegNo,
		UserID:       t.UserID.Ptr(),
		StartTime:    t.IssuedAt.Format(time.RFC3339),
		OccurredAt:   t.IssuedAt.Format(time.RFC3339),
	})
	return t, nil
}

// Release closes the open session for ticket and frees its slot.  Nothing
// is mutated unless both writes succeed.
func (s *ParkingService) Release(ctx context.Context, ticket string) error {
	ticket = strings.TrimSpace(ticket)
	if ticket == "" {
		return ErrTicketRequired
	}

	var (
		slot model.Slot
		sess model.ParkingSession
	)
	end := s.now().UTC().Truncate(time.Second)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		slot, err = s.slots.GetByTicketForUpdateTx(ctx, tx, ticket)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrTicketNotFound
			}
			return persistence("lock slot by ticket", err)
		}
		if err := s.sessions.CloseTx(ctx, tx, ticket, end); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSessionNotFound
			}
			return persistence("close session", err)
		}
		if err := s.slots.FreeTx(ctx, tx, slot.ID, ticket); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrTicketNotFound
			}
			return persistence("free slot", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	carsReleasedTotal.Inc()
	ev := queue.SessionEvent{
		Type:         queue.SessionClosed,
		TicketID:     ticket,
		SlotID:       slot.ID,
		VehicleRegNo: slot.VehicleRegNo.String,
		UserID:       slot.UserID.Ptr(),
		EndTime:      end.Format(time.RFC3339),
		OccurredAt:   end.Format(time.RFC3339),
	}
	// The session row is only read back for the event; a failure here
	// does not affect the committed release.
	if sess, err = s.sessions.GetByTicket(ctx, ticket); err == nil {
		ev.StartTime = sess.StartTime.UTC().Format(time.RFC3339)
		ev.DurationSeconds = int64(end.Sub(sess.StartTime).Seconds())
	} else {
		s.log.WithError(err).WithField("ticket_id", ticket).Warn("reload released session failed")
	}
	s.publish(ctx, ev)
	return nil
}

// Lot returns the current Floor → Row → Slot snapshot.
func (s *ParkingService) Lot(ctx context.Context) (model.LotView, error) {
	floors, err := s.lots.ListFloors(ctx)
	if err != nil {
		return model.LotView{}, persistence("list floors", err)
	}
	rows, err := s.lots.ListRows(ctx)
	if err != nil {
		return model.LotView{}, persistence("list rows", err)
	}
	slots, err := s.lots.ListSlots(ctx)
	if err != nil {
		return model.LotView{}, persistence("list slots", err)
	}
	recordSlotCounts(countByStatus(slots))
	return BuildLotView(floors, rows, slots), nil
}

// SetSlotStatus moves an unoccupied slot between FREE and OUT_OF_SERVICE.
func (s *ParkingService) SetSlotStatus(ctx context.Context, slotID uint64, status model.SlotStatus) error {
	if status != model.SlotFree && status != model.SlotOutOfService {
		return ErrInvalidStatus
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		slot, err := s.slots.GetByIDForUpdateTx(ctx, tx, slotID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrSlotNotFound
			}
			return persistence("lock slot", err)
		}
		if slot.Status == model.SlotOccupied {
			return ErrSlotOccupied
		}
		if slot.Status == status {
			return nil
		}
		if err := s.slots.UpdateStatusTx(ctx, tx, slotID, status); err != nil {
			return persistence("update slot status", err)
		}
		return nil
	})
}

// ListSessions returns sessions newest first; open filters when non-nil.
func (s *ParkingService) ListSessions(ctx context.Context, open *bool, limit int) ([]model.ParkingSession, error) {
	items, err := s.sessions.List(ctx, repository.SessionFilter{Open: open, Limit: limit})
	if err != nil {
		return nil, persistence("list sessions", err)
	}
	return items, nil
}

// GetSession returns one session by ticket.
func (s *ParkingService) GetSession(ctx context.Context, ticket string) (model.ParkingSession, error) {
	ticket = strings.TrimSpace(ticket)
	if ticket == "" {
		return model.ParkingSession{}, ErrTicketRequired
	}
	sess, err := s.sessions.GetByTicket(ctx, ticket)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.ParkingSession{}, ErrSessionNotFound
		}
		return model.ParkingSession{}, persistence("get session", err)
	}
	return sess, nil
}

func (s *ParkingService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return persistence("commit", err)
	}
	committed = true
	return nil
}

// publish runs after commit and outlives a cancelled request context.
func (s *ParkingService) publish(ctx context.Context, ev queue.SessionEvent) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.PublishSession(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event":     ev.Type,
			"ticket_id": ev.TicketID,
		}).Warn("publish session event failed")
	}
}

func normalizeVehicleReg(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrVehicleRegRequired
	}
	if utf8.RuneCountInString(v) > maxVehicleRegLen {
		return "", ErrVehicleRegTooLong
	}
	return v, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNoSlotAvailable):
		return "no_slot"
	case errors.Is(err, ErrSlotNotFree):
		return "slot_not_free"
	case errors.Is(err, ErrTicketCollision):
		return "ticket_collision"
	}
	return "other"
}
