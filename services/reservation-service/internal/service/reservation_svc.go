package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/you/flight-scheduling/pkg/eventstore"
	"github.com/you/flight-scheduling/services/reservation-service/internal/domain"
)

var ErrNotFound = errors.New("reservation_not_found")

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// ReservationSvc runs the load→decide→append→publish cycle for the
// Reservation aggregate. Commands for one reservation id race only at the
// event store, where the optimistic append rejects the loser; the broker
// redelivers and the retry replays against the fresh log.
type ReservationSvc struct {
	store *eventstore.Store
	pub   Publisher
}

func NewReservationSvc(store *eventstore.Store, pub Publisher) *ReservationSvc {
	return &ReservationSvc{store: store, pub: pub}
}

type CreateInput struct {
	ReservationID    string
	StudentID        string
	StudentSlotID    string
	InstructorID     string
	InstructorSlotID string
	AircraftID       string
	AircraftSlotID   string
	ReservationTime  time.Time
}

// Create starts the saga. Generates a reservation id when the caller did
// not supply one. Returns the created (or pre-existing) state.
func (s *ReservationSvc) Create(ctx context.Context, in CreateInput) (domain.State, error) {
	if in.ReservationID == "" {
		in.ReservationID = domain.NewReservationID()
	}
	cmd := domain.CreateReservation{
		ReservationID:    in.ReservationID,
		StudentID:        in.StudentID,
		StudentSlotID:    in.StudentSlotID,
		InstructorID:     in.InstructorID,
		InstructorSlotID: in.InstructorSlotID,
		AircraftID:       in.AircraftID,
		AircraftSlotID:   in.AircraftSlotID,
		ReservationTime:  in.ReservationTime,
	}
	if err := s.dispatch(ctx, in.ReservationID, cmd); err != nil {
		return domain.State{}, err
	}
	return s.Get(ctx, in.ReservationID)
}

func (s *ReservationSvc) MarkAvailable(ctx context.Context, reservationID string, role domain.ParticipantType) error {
	return s.dispatch(ctx, reservationID, domain.MarkAvailable{ReservationID: reservationID, Role: role})
}

func (s *ReservationSvc) MarkUnavailable(ctx context.Context, reservationID string, role domain.ParticipantType) error {
	return s.dispatch(ctx, reservationID, domain.MarkUnavailable{ReservationID: reservationID, Role: role})
}

// Cancel releases a confirmed reservation. On a pending or already
// cancelled one it is a no-op, mirroring the aggregate's rules.
func (s *ReservationSvc) Cancel(ctx context.Context, reservationID string) (domain.State, error) {
	if err := s.dispatch(ctx, reservationID, domain.CancelReservation{ReservationID: reservationID}); err != nil {
		return domain.State{}, err
	}
	return s.Get(ctx, reservationID)
}

func (s *ReservationSvc) Get(ctx context.Context, reservationID string) (domain.State, error) {
	state, _, err := s.load(ctx, reservationID)
	if err != nil {
		return domain.State{}, err
	}
	if state.IsEmpty() {
		return domain.State{}, ErrNotFound
	}
	return state, nil
}

func (s *ReservationSvc) load(ctx context.Context, reservationID string) (domain.State, int, error) {
	recs, err := s.store.Load(ctx, reservationID)
	if err != nil {
		return domain.State{}, 0, err
	}
	state := domain.Empty()
	for _, r := range recs {
		e, err := domain.UnmarshalEvent(r.EventType, r.Payload)
		if err != nil {
			return domain.State{}, 0, fmt.Errorf("replay %s seq %d: %w", reservationID, r.Seq, err)
		}
		state = state.OnEvent(e)
	}
	return state, len(recs), nil
}

func (s *ReservationSvc) dispatch(ctx context.Context, reservationID string, cmd domain.Command) error {
	state, version, err := s.load(ctx, reservationID)
	if err != nil {
		return err
	}
	events := state.OnCommand(cmd)
	if len(events) == 0 {
		return nil
	}

	stored := make([]eventstore.Event, 0, len(events))
	for _, e := range events {
		typ, payload, err := domain.MarshalEvent(e)
		if err != nil {
			return err
		}
		stored = append(stored, eventstore.Event{Type: typ, Payload: payload})
	}
	if err := s.store.Append(ctx, reservationID, version, stored); err != nil {
		return err
	}

	// The log is the source of truth; publishing is best effort and the
	// broker's redelivery covers consumers that missed a message.
	for _, e := range events {
		if err := s.pub.PublishJSON(ctx, routingKey(e), e); err != nil {
			log.Printf("[reservation] publish %s for %s: %v", e.EventType(), reservationID, err)
		}
	}
	return nil
}

func routingKey(e domain.Event) string {
	switch ev := e.(type) {
	case domain.ReservationCreated:
		return "reservation.created"
	case domain.WantsTimeSlot:
		return fmt.Sprintf("reservation.%s.wants-slot", ev.Role)
	case domain.LegAvailable:
		return fmt.Sprintf("reservation.%s.available", ev.Role)
	case domain.LegUnavailable:
		return fmt.Sprintf("reservation.%s.unavailable", ev.Role)
	case domain.SlotBookingCancelled:
		return fmt.Sprintf("reservation.%s.slot-cancelled", ev.Role)
	case domain.ReservationConfirmed:
		return "reservation.confirmed"
	case domain.ReservationCancelled:
		return "reservation.cancelled"
	}
	return "reservation.unknown"
}
