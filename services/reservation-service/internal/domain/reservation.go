// Package domain holds the Reservation aggregate: one saga per reservation
// id tracking three participant legs (student, instructor, aircraft) and
// deciding confirm or cancel from their availability responses. OnCommand
// and OnEvent are pure functions over immutable state values.
package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

type ParticipantType string

const (
	TypeStudent    ParticipantType = "student"
	TypeInstructor ParticipantType = "instructor"
	TypeAircraft   ParticipantType = "aircraft"
)

// Roles is the fixed leg order used for created events and cascades.
var Roles = []ParticipantType{TypeStudent, TypeInstructor, TypeAircraft}

func ParseParticipantType(s string) (ParticipantType, error) {
	switch ParticipantType(s) {
	case TypeStudent, TypeInstructor, TypeAircraft:
		return ParticipantType(s), nil
	}
	return "", fmt.Errorf("unknown participant type %q", s)
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

type ParticipantStatus string

const (
	ParticipantPending     ParticipantStatus = "pending"
	ParticipantAvailable   ParticipantStatus = "available"
	ParticipantUnavailable ParticipantStatus = "unavailable"
)

// Participant is one leg of the reservation and its link to the slot it wants.
type Participant struct {
	ParticipantID   string            `json:"participant_id"`
	ParticipantType ParticipantType   `json:"participant_type"`
	TimeSlotID      string            `json:"time_slot_id"`
	Status          ParticipantStatus `json:"status"`
}

type State struct {
	ReservationID   string      `json:"reservation_id"`
	Student         Participant `json:"student"`
	Instructor      Participant `json:"instructor"`
	Aircraft        Participant `json:"aircraft"`
	ReservationTime time.Time   `json:"reservation_time"`
	Status          Status      `json:"status"`
}

func Empty() State {
	return State{}
}

func (s State) IsEmpty() bool {
	return s.ReservationID == ""
}

// Leg returns the participant for a role. Zero value for an unknown role.
func (s State) Leg(role ParticipantType) Participant {
	switch role {
	case TypeStudent:
		return s.Student
	case TypeInstructor:
		return s.Instructor
	case TypeAircraft:
		return s.Aircraft
	}
	return Participant{}
}

func (s State) withLeg(role ParticipantType, p Participant) State {
	switch role {
	case TypeStudent:
		s.Student = p
	case TypeInstructor:
		s.Instructor = p
	case TypeAircraft:
		s.Aircraft = p
	}
	return s
}

// others returns the two legs that are not the given role, in fixed order.
func (s State) others(role ParticipantType) []Participant {
	out := make([]Participant, 0, 2)
	for _, r := range Roles {
		if r != role {
			out = append(out, s.Leg(r))
		}
	}
	return out
}

type Command interface{ isCommand() }

type CreateReservation struct {
	ReservationID    string
	StudentID        string
	StudentSlotID    string
	InstructorID     string
	InstructorSlotID string
	AircraftID       string
	AircraftSlotID   string
	ReservationTime  time.Time
}

// MarkAvailable records that the role's slot accepted the hold.
type MarkAvailable struct {
	ReservationID string
	Role          ParticipantType
}

// MarkUnavailable records that the role's slot rejected the hold. A single
// rejection cancels the whole reservation.
type MarkUnavailable struct {
	ReservationID string
	Role          ParticipantType
}

type CancelReservation struct {
	ReservationID string
}

func (CreateReservation) isCommand() {}
func (MarkAvailable) isCommand()     {}
func (MarkUnavailable) isCommand()   {}
func (CancelReservation) isCommand() {}

type Event interface {
	EventType() string
	isEvent()
}

type ReservationCreated struct {
	ReservationID    string    `json:"reservation_id"`
	StudentID        string    `json:"student_id"`
	StudentSlotID    string    `json:"student_slot_id"`
	InstructorID     string    `json:"instructor_id"`
	InstructorSlotID string    `json:"instructor_slot_id"`
	AircraftID       string    `json:"aircraft_id"`
	AircraftSlotID   string    `json:"aircraft_slot_id"`
	ReservationTime  time.Time `json:"reservation_time"`
	Status           Status    `json:"status"`
}

// WantsTimeSlot carries the outbound intent for one leg. Applying it does
// not change state; it exists for the choreography layer to translate into
// a slot request.
type WantsTimeSlot struct {
	ReservationID string          `json:"reservation_id"`
	SlotID        string          `json:"slot_id"`
	Role          ParticipantType `json:"role"`
}

type LegAvailable struct {
	ReservationID string          `json:"reservation_id"`
	Role          ParticipantType `json:"role"`
	Participant   Participant     `json:"participant"`
}

type LegUnavailable struct {
	ReservationID string          `json:"reservation_id"`
	Role          ParticipantType `json:"role"`
	Participant   Participant     `json:"participant"`
}

// SlotBookingCancelled is the cascade event: it tells the choreography layer
// to release the named slot's hold for this reservation.
type SlotBookingCancelled struct {
	SlotID        string          `json:"slot_id"`
	ReservationID string          `json:"reservation_id"`
	Role          ParticipantType `json:"role"`
}

type ReservationConfirmed struct {
	ReservationID string `json:"reservation_id"`
}

type ReservationCancelled struct {
	ReservationID string `json:"reservation_id"`
}

func (ReservationCreated) EventType() string   { return "ReservationCreated" }
func (WantsTimeSlot) EventType() string        { return "WantsTimeSlot" }
func (LegAvailable) EventType() string         { return "LegAvailable" }
func (LegUnavailable) EventType() string       { return "LegUnavailable" }
func (SlotBookingCancelled) EventType() string { return "SlotBookingCancelled" }
func (ReservationConfirmed) EventType() string { return "ReservationConfirmed" }
func (ReservationCancelled) EventType() string { return "ReservationCancelled" }

func (ReservationCreated) isEvent()   {}
func (WantsTimeSlot) isEvent()        {}
func (LegAvailable) isEvent()         {}
func (LegUnavailable) isEvent()       {}
func (SlotBookingCancelled) isEvent() {}
func (ReservationConfirmed) isEvent() {}
func (ReservationCancelled) isEvent() {}

func roundToHour(t time.Time) time.Time {
	return t.Add(30 * time.Minute).Truncate(time.Hour)
}

// OnCommand decides the events a command produces. An empty result is a
// silent no-op; every command must tolerate duplicate delivery.
func (s State) OnCommand(cmd Command) []Event {
	switch c := cmd.(type) {
	case CreateReservation:
		return s.onCreate(c)
	case MarkAvailable:
		return s.onAvailable(c)
	case MarkUnavailable:
		return s.onUnavailable(c)
	case CancelReservation:
		return s.onCancel(c)
	}
	return nil
}

func (s State) onCreate(c CreateReservation) []Event {
	if !s.IsEmpty() {
		return nil
	}
	return []Event{
		ReservationCreated{
			ReservationID:    c.ReservationID,
			StudentID:        c.StudentID,
			StudentSlotID:    c.StudentSlotID,
			InstructorID:     c.InstructorID,
			InstructorSlotID: c.InstructorSlotID,
			AircraftID:       c.AircraftID,
			AircraftSlotID:   c.AircraftSlotID,
			ReservationTime:  roundToHour(c.ReservationTime),
			Status:           StatusPending,
		},
		WantsTimeSlot{ReservationID: c.ReservationID, SlotID: c.StudentSlotID, Role: TypeStudent},
		WantsTimeSlot{ReservationID: c.ReservationID, SlotID: c.InstructorSlotID, Role: TypeInstructor},
		WantsTimeSlot{ReservationID: c.ReservationID, SlotID: c.AircraftSlotID, Role: TypeAircraft},
	}
}

func (s State) onAvailable(c MarkAvailable) []Event {
	if s.IsEmpty() || s.Status == StatusCancelled || s.Leg(c.Role).Status != ParticipantPending {
		return nil
	}
	updated := s.Leg(c.Role)
	updated.Status = ParticipantAvailable
	events := []Event{LegAvailable{ReservationID: c.ReservationID, Role: c.Role, Participant: updated}}

	// Confirmation is decided from leg status after this event, so the third
	// leg to respond triggers it no matter the arrival order.
	allAvailable := true
	for _, other := range s.others(c.Role) {
		if other.Status != ParticipantAvailable {
			allAvailable = false
		}
	}
	if allAvailable {
		events = append(events, ReservationConfirmed{ReservationID: c.ReservationID})
	}
	return events
}

func (s State) onUnavailable(c MarkUnavailable) []Event {
	if s.IsEmpty() || s.Status == StatusCancelled || s.Leg(c.Role).Status != ParticipantPending {
		return nil
	}
	updated := s.Leg(c.Role)
	updated.Status = ParticipantUnavailable
	events := []Event{LegUnavailable{ReservationID: c.ReservationID, Role: c.Role, Participant: updated}}

	// One rejection cancels the whole reservation: release the other two
	// holds proactively instead of waiting for their responses.
	for _, other := range s.others(c.Role) {
		events = append(events, SlotBookingCancelled{
			SlotID:        other.TimeSlotID,
			ReservationID: c.ReservationID,
			Role:          other.ParticipantType,
		})
	}
	return append(events, ReservationCancelled{ReservationID: c.ReservationID})
}

func (s State) onCancel(c CancelReservation) []Event {
	// Only a confirmed reservation can be cancelled by request; a pending
	// one is cancelled solely through an unavailability response.
	if s.IsEmpty() || s.Status != StatusConfirmed {
		return nil
	}
	events := make([]Event, 0, 4)
	for _, r := range Roles {
		leg := s.Leg(r)
		events = append(events, SlotBookingCancelled{
			SlotID:        leg.TimeSlotID,
			ReservationID: c.ReservationID,
			Role:          r,
		})
	}
	return append(events, ReservationCancelled{ReservationID: c.ReservationID})
}

// OnEvent is the single source of truth for state mutation.
func (s State) OnEvent(e Event) State {
	switch ev := e.(type) {
	case ReservationCreated:
		return State{
			ReservationID: ev.ReservationID,
			Student: Participant{
				ParticipantID:   ev.StudentID,
				ParticipantType: TypeStudent,
				TimeSlotID:      ev.StudentSlotID,
				Status:          ParticipantPending,
			},
			Instructor: Participant{
				ParticipantID:   ev.InstructorID,
				ParticipantType: TypeInstructor,
				TimeSlotID:      ev.InstructorSlotID,
				Status:          ParticipantPending,
			},
			Aircraft: Participant{
				ParticipantID:   ev.AircraftID,
				ParticipantType: TypeAircraft,
				TimeSlotID:      ev.AircraftSlotID,
				Status:          ParticipantPending,
			},
			ReservationTime: ev.ReservationTime,
			Status:          ev.Status,
		}
	case LegAvailable:
		return s.withLeg(ev.Role, ev.Participant)
	case LegUnavailable:
		return s.withLeg(ev.Role, ev.Participant)
	case ReservationConfirmed:
		s.Status = StatusConfirmed
		return s
	case ReservationCancelled:
		s.Status = StatusCancelled
		return s
	case WantsTimeSlot, SlotBookingCancelled:
		// intent-only events; no state change
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

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewReservationID returns a 6-char random alphanumeric code.
func NewReservationID() string {
	b := make([]byte, 6)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
		if err != nil {
			panic(err) // crypto/rand failure is not recoverable here
		}
		b[i] = idAlphabet[n.Int64()]
	}
	return string(b)
}
