package domain

import (
	"regexp"
	"testing"
	"time"
)

var reservationTime = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func createCommand() CreateReservation {
	return CreateReservation{
		ReservationID:    "RES001",
		StudentID:        "student-1",
		StudentSlotID:    "student-slot-1",
		InstructorID:     "instructor-1",
		InstructorSlotID: "instructor-slot-1",
		AircraftID:       "aircraft-1",
		AircraftSlotID:   "aircraft-slot-1",
		ReservationTime:  reservationTime,
	}
}

func pendingReservation(t *testing.T) State {
	t.Helper()
	events := Empty().OnCommand(createCommand())
	if len(events) != 4 {
		t.Fatalf("expected 4 creation events, got %d", len(events))
	}
	return Replay(events)
}

func apply(t *testing.T, s State, cmd Command) (State, []Event) {
	t.Helper()
	events := s.OnCommand(cmd)
	for _, e := range events {
		s = s.OnEvent(e)
	}
	return s, events
}

func TestCreateReservation(t *testing.T) {
	events := Empty().OnCommand(createCommand())
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}

	created, ok := events[0].(ReservationCreated)
	if !ok {
		t.Fatalf("expected ReservationCreated first, got %T", events[0])
	}
	if created.Status != StatusPending {
		t.Errorf("expected pending, got %s", created.Status)
	}
	if !created.ReservationTime.Equal(reservationTime) {
		t.Errorf("10:00 must survive rounding, got %v", created.ReservationTime)
	}

	wantRoles := []ParticipantType{TypeStudent, TypeInstructor, TypeAircraft}
	wantSlots := []string{"student-slot-1", "instructor-slot-1", "aircraft-slot-1"}
	for i := 1; i < 4; i++ {
		wants, ok := events[i].(WantsTimeSlot)
		if !ok {
			t.Fatalf("event %d: expected WantsTimeSlot, got %T", i, events[i])
		}
		if wants.Role != wantRoles[i-1] || wants.SlotID != wantSlots[i-1] || wants.ReservationID != "RES001" {
			t.Errorf("event %d: unexpected fields %+v", i, wants)
		}
	}

	s := Replay(events)
	if s.Status != StatusPending || s.Student.Status != ParticipantPending ||
		s.Instructor.Status != ParticipantPending || s.Aircraft.Status != ParticipantPending {
		t.Errorf("unexpected replayed state: %+v", s)
	}
}

func TestCreateReservationRoundsTime(t *testing.T) {
	cmd := createCommand()
	cmd.ReservationTime = time.Date(2024, 3, 20, 9, 31, 0, 0, time.UTC)
	created := Empty().OnCommand(cmd)[0].(ReservationCreated)
	if want := time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC); !created.ReservationTime.Equal(want) {
		t.Errorf("expected %v, got %v", want, created.ReservationTime)
	}
}

func TestCreateReservationIgnoredWhenNotEmpty(t *testing.T) {
	s := pendingReservation(t)
	if events := s.OnCommand(createCommand()); len(events) != 0 {
		t.Errorf("duplicate create must be a no-op, got %d events", len(events))
	}
}

func TestMarkAvailableSingleLeg(t *testing.T) {
	s := pendingReservation(t)
	s, events := apply(t, s, MarkAvailable{ReservationID: "RES001", Role: TypeStudent})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if _, ok := events[0].(LegAvailable); !ok {
		t.Fatalf("expected LegAvailable, got %T", events[0])
	}
	if s.Student.Status != ParticipantAvailable {
		t.Errorf("student leg must be available, got %s", s.Student.Status)
	}
	if s.Status != StatusPending {
		t.Errorf("two legs still pending, status must stay pending, got %s", s.Status)
	}

	// duplicate delivery: leg no longer pending
	if events := s.OnCommand(MarkAvailable{ReservationID: "RES001", Role: TypeStudent}); len(events) != 0 {
		t.Errorf("duplicate MarkAvailable must be a no-op, got %d events", len(events))
	}
}

func TestMarkAvailableIgnoredWhenEmpty(t *testing.T) {
	if events := Empty().OnCommand(MarkAvailable{ReservationID: "nope", Role: TypeStudent}); len(events) != 0 {
		t.Errorf("expected no events on empty state, got %d", len(events))
	}
}

func TestConfirmationFiresExactlyOnceForEveryOrder(t *testing.T) {
	orders := [][]ParticipantType{
		{TypeStudent, TypeInstructor, TypeAircraft},
		{TypeStudent, TypeAircraft, TypeInstructor},
		{TypeInstructor, TypeStudent, TypeAircraft},
		{TypeInstructor, TypeAircraft, TypeStudent},
		{TypeAircraft, TypeStudent, TypeInstructor},
		{TypeAircraft, TypeInstructor, TypeStudent},
	}
	for _, order := range orders {
		s := pendingReservation(t)
		confirmations := 0
		for i, role := range order {
			var events []Event
			s, events = apply(t, s, MarkAvailable{ReservationID: "RES001", Role: role})
			for _, e := range events {
				if _, ok := e.(ReservationConfirmed); ok {
					confirmations++
					if i != 2 {
						t.Errorf("order %v: confirmed on response %d, want 3rd", order, i+1)
					}
				}
			}
		}
		if confirmations != 1 {
			t.Errorf("order %v: expected exactly 1 confirmation, got %d", order, confirmations)
		}
		if s.Status != StatusConfirmed {
			t.Errorf("order %v: expected confirmed, got %s", order, s.Status)
		}
	}
}

func TestMarkUnavailableCancelsWholeReservation(t *testing.T) {
	s := pendingReservation(t)
	s, events := apply(t, s, MarkUnavailable{ReservationID: "RES001", Role: TypeInstructor})
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if _, ok := events[0].(LegUnavailable); !ok {
		t.Errorf("expected LegUnavailable first, got %T", events[0])
	}

	c1, ok1 := events[1].(SlotBookingCancelled)
	c2, ok2 := events[2].(SlotBookingCancelled)
	if !ok1 || !ok2 {
		t.Fatalf("expected two cascade events, got %T and %T", events[1], events[2])
	}
	// the other two legs in fixed order: student then aircraft
	if c1.SlotID != "student-slot-1" || c1.Role != TypeStudent {
		t.Errorf("first cascade must target the student slot, got %+v", c1)
	}
	if c2.SlotID != "aircraft-slot-1" || c2.Role != TypeAircraft {
		t.Errorf("second cascade must target the aircraft slot, got %+v", c2)
	}

	if _, ok := events[3].(ReservationCancelled); !ok {
		t.Errorf("expected ReservationCancelled last, got %T", events[3])
	}
	if s.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", s.Status)
	}
	if s.Instructor.Status != ParticipantUnavailable {
		t.Errorf("instructor leg must be unavailable, got %s", s.Instructor.Status)
	}
}

func TestMarkUnavailableFiresEvenWithOtherLegsResolved(t *testing.T) {
	s := pendingReservation(t)
	s, _ = apply(t, s, MarkAvailable{ReservationID: "RES001", Role: TypeStudent})
	s, events := apply(t, s, MarkUnavailable{ReservationID: "RES001", Role: TypeAircraft})
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if s.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", s.Status)
	}
}

func TestNoLegTransitionAfterCancellation(t *testing.T) {
	s := pendingReservation(t)
	s, _ = apply(t, s, MarkUnavailable{ReservationID: "RES001", Role: TypeStudent})

	// instructor and aircraft responses arrive late
	if events := s.OnCommand(MarkAvailable{ReservationID: "RES001", Role: TypeInstructor}); len(events) != 0 {
		t.Errorf("cancelled is terminal, got %d events for late MarkAvailable", len(events))
	}
	if events := s.OnCommand(MarkUnavailable{ReservationID: "RES001", Role: TypeAircraft}); len(events) != 0 {
		t.Errorf("cancelled is terminal, got %d events for late MarkUnavailable", len(events))
	}
}

func confirmedReservation(t *testing.T) State {
	t.Helper()
	s := pendingReservation(t)
	for _, role := range Roles {
		s, _ = apply(t, s, MarkAvailable{ReservationID: "RES001", Role: role})
	}
	if s.Status != StatusConfirmed {
		t.Fatalf("setup: expected confirmed, got %s", s.Status)
	}
	return s
}

func TestCancelConfirmedReservation(t *testing.T) {
	s := confirmedReservation(t)
	s, events := apply(t, s, CancelReservation{ReservationID: "RES001"})
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	wantSlots := []string{"student-slot-1", "instructor-slot-1", "aircraft-slot-1"}
	for i := 0; i < 3; i++ {
		c, ok := events[i].(SlotBookingCancelled)
		if !ok {
			t.Fatalf("event %d: expected SlotBookingCancelled, got %T", i, events[i])
		}
		if c.SlotID != wantSlots[i] || c.ReservationID != "RES001" {
			t.Errorf("event %d: unexpected fields %+v", i, c)
		}
	}
	if _, ok := events[3].(ReservationCancelled); !ok {
		t.Errorf("expected ReservationCancelled last, got %T", events[3])
	}
	if s.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", s.Status)
	}
}

func TestCancelPendingReservationIsNoop(t *testing.T) {
	s := pendingReservation(t)
	if events := s.OnCommand(CancelReservation{ReservationID: "RES001"}); len(events) != 0 {
		t.Errorf("cancel of a pending reservation is not supported, got %d events", len(events))
	}
}

func TestCancelCancelledReservationIsNoop(t *testing.T) {
	s := confirmedReservation(t)
	s, _ = apply(t, s, CancelReservation{ReservationID: "RES001"})
	if events := s.OnCommand(CancelReservation{ReservationID: "RES001"}); len(events) != 0 {
		t.Errorf("duplicate cancel must be a no-op, got %d events", len(events))
	}
}

func TestCodecRoundTrip(t *testing.T) {
	s := pendingReservation(t)
	events := s.OnCommand(MarkUnavailable{ReservationID: "RES001", Role: TypeStudent})

	all := append(Empty().OnCommand(createCommand()), events...)
	replayed := Empty()
	for _, e := range all {
		typ, payload, err := MarshalEvent(e)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		back, err := UnmarshalEvent(typ, payload)
		if err != nil {
			t.Fatalf("unmarshal %s: %v", typ, err)
		}
		replayed = replayed.OnEvent(back)
	}
	if replayed.Status != StatusCancelled || replayed.Student.Status != ParticipantUnavailable {
		t.Errorf("replay through codec diverged: %+v", replayed)
	}
}

func TestNewReservationID(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := NewReservationID()
		if !pattern.MatchString(id) {
			t.Fatalf("bad id format: %q", id)
		}
		seen[id] = true
	}
	if len(seen) < 2 {
		t.Error("ids do not look random")
	}
}
