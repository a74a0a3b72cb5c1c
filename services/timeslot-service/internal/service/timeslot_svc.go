package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/you/flight-scheduling/pkg/eventstore"
	"github.com/you/flight-scheduling/services/timeslot-service/internal/domain"
)

var ErrNotFound = errors.New("timeslot_not_found")

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// TimeSlotSvc runs the load→decide→append→publish cycle for the TimeSlot
// aggregate.
type TimeSlotSvc struct {
	store *eventstore.Store
	pub   Publisher
}

func NewTimeSlotSvc(store *eventstore.Store, pub Publisher) *TimeSlotSvc {
	return &TimeSlotSvc{store: store, pub: pub}
}

func (s *TimeSlotSvc) MakeAvailable(ctx context.Context, slotID, participantID string, ptype domain.ParticipantType, startTime time.Time) (domain.State, error) {
	cmd := domain.MakeAvailable{
		SlotID:          slotID,
		ParticipantID:   participantID,
		ParticipantType: ptype,
		StartTime:       startTime,
	}
	if err := s.dispatch(ctx, slotID, cmd); err != nil {
		return domain.State{}, err
	}
	return s.Get(ctx, slotID)
}

func (s *TimeSlotSvc) MakeUnavailable(ctx context.Context, slotID string) error {
	return s.dispatch(ctx, slotID, domain.MakeUnavailable{SlotID: slotID})
}

// Request asks for the hold on behalf of a reservation leg. The answer
// (accepted or rejected) travels back asynchronously as an event.
func (s *TimeSlotSvc) Request(ctx context.Context, slotID, reservationID string, role domain.ParticipantType) error {
	return s.dispatch(ctx, slotID, domain.RequestSlot{SlotID: slotID, ReservationID: reservationID, Role: role})
}

func (s *TimeSlotSvc) Cancel(ctx context.Context, slotID, reservationID string) error {
	return s.dispatch(ctx, slotID, domain.CancelSlot{SlotID: slotID, ReservationID: reservationID})
}

func (s *TimeSlotSvc) Get(ctx context.Context, slotID string) (domain.State, error) {
	state, _, err := s.load(ctx, slotID)
	if err != nil {
		return domain.State{}, err
	}
	if state.IsEmpty() {
		return domain.State{}, ErrNotFound
	}
	return state, nil
}

func (s *TimeSlotSvc) load(ctx context.Context, slotID string) (domain.State, int, error) {
	recs, err := s.store.Load(ctx, slotID)
	if err != nil {
		return domain.State{}, 0, err
	}
	state := domain.Empty()
	for _, r := range recs {
		e, err := domain.UnmarshalEvent(r.EventType, r.Payload)
		if err != nil {
			return domain.State{}, 0, fmt.Errorf("replay %s seq %d: %w", slotID, r.Seq, err)
		}
		state = state.OnEvent(e)
	}
	return state, len(recs), nil
}

func (s *TimeSlotSvc) dispatch(ctx context.Context, slotID string, cmd domain.Command) error {
	state, version, err := s.load(ctx, slotID)
	if err != nil {
		return err
	}
	event := state.OnCommand(cmd)
	if event == nil {
		return nil
	}

	typ, payload, err := domain.MarshalEvent(event)
	if err != nil {
		return err
	}
	if err := s.store.Append(ctx, slotID, version, []eventstore.Event{{Type: typ, Payload: payload}}); err != nil {
		return err
	}

	if err := s.pub.PublishJSON(ctx, routingKey(event), event); err != nil {
		log.Printf("[timeslot] publish %s for %s: %v", event.EventType(), slotID, err)
	}
	return nil
}

func routingKey(e domain.Event) string {
	switch ev := e.(type) {
	case domain.SlotMadeAvailable:
		return "timeslot.made-available"
	case domain.SlotMadeUnavailable:
		return "timeslot.made-unavailable"
	case domain.RequestAccepted:
		return fmt.Sprintf("timeslot.%s.accepted", ev.Role)
	case domain.RequestRejected:
		return fmt.Sprintf("timeslot.%s.rejected", ev.Role)
	case domain.SlotReservationCancelled:
		return "timeslot.cancelled"
	}
	return "timeslot.unknown"
}
