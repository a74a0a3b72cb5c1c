// Package domain holds the TimeSlot aggregate: one state machine per
// (participant, hour bucket) that owns the single hold on that resource.
// OnCommand and OnEvent are pure; everything durable or asynchronous lives
// in the layers above.
package domain

import (
	"fmt"
	"time"
)

type ParticipantType string

const (
	TypeStudent    ParticipantType = "student"
	TypeInstructor ParticipantType = "instructor"
	TypeAircraft   ParticipantType = "aircraft"
)

func ParseParticipantType(s string) (ParticipantType, error) {
	switch ParticipantType(s) {
	case TypeStudent, TypeInstructor, TypeAircraft:
		return ParticipantType(s), nil
	}
	return "", fmt.Errorf("unknown participant type %q", s)
}

type Status string

const (
	StatusAvailable   Status = "available"
	StatusUnavailable Status = "unavailable"
	StatusScheduled   Status = "scheduled"
)

// State is the replayed view of one slot. ReservationID is set exactly when
// Status is scheduled.
type State struct {
	SlotID          string          `json:"slot_id"`
	ParticipantID   string          `json:"participant_id"`
	ParticipantType ParticipantType `json:"participant_type"`
	StartTime       time.Time       `json:"start_time"`
	Status          Status          `json:"status"`
	ReservationID   string          `json:"reservation_id,omitempty"`
}

func Empty() State {
	return State{Status: StatusAvailable}
}

func (s State) IsEmpty() bool {
	return s.SlotID == ""
}

type Command interface{ isCommand() }

type MakeAvailable struct {
	SlotID          string
	ParticipantID   string
	ParticipantType ParticipantType
	StartTime       time.Time
}

type MakeUnavailable struct {
	SlotID string
}

// RequestSlot asks for the hold on behalf of a reservation. Role records
// which leg of the reservation is asking; the slot treats all roles the same.
type RequestSlot struct {
	SlotID        string
	ReservationID string
	Role          ParticipantType
}

type CancelSlot struct {
	SlotID        string
	ReservationID string
}

func (MakeAvailable) isCommand()   {}
func (MakeUnavailable) isCommand() {}
func (RequestSlot) isCommand()     {}
func (CancelSlot) isCommand()      {}

type Event interface {
	EventType() string
	isEvent()
}

type SlotMadeAvailable struct {
	SlotID          string          `json:"slot_id"`
	ParticipantID   string          `json:"participant_id"`
	ParticipantType ParticipantType `json:"participant_type"`
	StartTime       time.Time       `json:"start_time"`
}

type SlotMadeUnavailable struct {
	SlotID string `json:"slot_id"`
}

type RequestAccepted struct {
	SlotID        string          `json:"slot_id"`
	ReservationID string          `json:"reservation_id"`
	Role          ParticipantType `json:"role"`
}

type RequestRejected struct {
	SlotID        string          `json:"slot_id"`
	ReservationID string          `json:"reservation_id"`
	Role          ParticipantType `json:"role"`
}

type SlotReservationCancelled struct {
	SlotID        string `json:"slot_id"`
	ReservationID string `json:"reservation_id"`
}

func (SlotMadeAvailable) EventType() string        { return "TimeSlotMadeAvailable" }
func (SlotMadeUnavailable) EventType() string      { return "TimeSlotMadeUnavailable" }
func (RequestAccepted) EventType() string          { return "RequestAccepted" }
func (RequestRejected) EventType() string          { return "RequestRejected" }
func (SlotReservationCancelled) EventType() string { return "TimeSlotReservationCancelled" }

func (SlotMadeAvailable) isEvent()        {}
func (SlotMadeUnavailable) isEvent()      {}
func (RequestAccepted) isEvent()          {}
func (RequestRejected) isEvent()          {}
func (SlotReservationCancelled) isEvent() {}

// roundToHour buckets a start time: anything before the half hour rounds
// down, at or after rounds up to the next hour boundary.
func roundToHour(t time.Time) time.Time {
	return t.Add(30 * time.Minute).Truncate(time.Hour)
}

// OnCommand decides what, if anything, the command changes. A nil result is
// a silent no-op: the idempotency contract for duplicate or stale deliveries.
func (s State) OnCommand(cmd Command) Event {
	switch c := cmd.(type) {
	case MakeAvailable:
		if !s.IsEmpty() {
			return nil
		}
		return SlotMadeAvailable{
			SlotID:          c.SlotID,
			ParticipantID:   c.ParticipantID,
			ParticipantType: c.ParticipantType,
			StartTime:       roundToHour(c.StartTime),
		}
	case MakeUnavailable:
		if s.IsEmpty() || s.Status != StatusAvailable {
			return nil
		}
		return SlotMadeUnavailable{SlotID: c.SlotID}
	case RequestSlot:
		if !s.IsEmpty() && s.Status == StatusAvailable {
			return RequestAccepted{SlotID: c.SlotID, ReservationID: c.ReservationID, Role: c.Role}
		}
		if s.Status == StatusScheduled && s.ReservationID == c.ReservationID {
			// already holding for this reservation
			return nil
		}
		return RequestRejected{SlotID: c.SlotID, ReservationID: c.ReservationID, Role: c.Role}
	case CancelSlot:
		if s.IsEmpty() || s.Status != StatusScheduled || s.ReservationID != c.ReservationID {
			return nil
		}
		return SlotReservationCancelled{SlotID: c.SlotID, ReservationID: c.ReservationID}
	}
	return nil
}

func (s State) OnEvent(e Event) State {
	switch ev := e.(type) {
	case SlotMadeAvailable:
		return State{
			SlotID:          ev.SlotID,
			ParticipantID:   ev.ParticipantID,
			ParticipantType: ev.ParticipantType,
			StartTime:       ev.StartTime,
			Status:          StatusAvailable,
		}
	case SlotMadeUnavailable:
		s.Status = StatusUnavailable
		s.ReservationID = ""
		return s
	case RequestAccepted:
		s.Status = StatusScheduled
		s.ReservationID = ev.ReservationID
		return s
	case RequestRejected:
		return s
	case SlotReservationCancelled:
		s.Status = StatusAvailable
		s.ReservationID = ""
		return s
	}
	return s
}

func Replay(events []Event) State {
	s := Empty()
	for _, e := range events {
		s = s.OnEvent(e)
	}
	return s
}
