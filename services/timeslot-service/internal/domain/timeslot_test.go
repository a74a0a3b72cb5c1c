package domain

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %s: %v", s, err)
	}
	return ts
}

func availableSlot(t *testing.T) State {
	t.Helper()
	ev := Empty().OnCommand(MakeAvailable{
		SlotID:          "aircraft-1-1710930000",
		ParticipantID:   "aircraft-1",
		ParticipantType: TypeAircraft,
		StartTime:       mustTime(t, "2024-03-20T10:00:00Z"),
	})
	if ev == nil {
		t.Fatal("expected TimeSlotMadeAvailable")
	}
	return Empty().OnEvent(ev)
}

func scheduledSlot(t *testing.T, reservationID string) State {
	t.Helper()
	s := availableSlot(t)
	ev := s.OnCommand(RequestSlot{SlotID: s.SlotID, ReservationID: reservationID, Role: TypeAircraft})
	if _, ok := ev.(RequestAccepted); !ok {
		t.Fatalf("expected RequestAccepted, got %T", ev)
	}
	return s.OnEvent(ev)
}

func TestMakeAvailable(t *testing.T) {
	ev := Empty().OnCommand(MakeAvailable{
		SlotID:          "slot-1",
		ParticipantID:   "student-1",
		ParticipantType: TypeStudent,
		StartTime:       mustTime(t, "2024-03-20T10:00:00Z"),
	})
	made, ok := ev.(SlotMadeAvailable)
	if !ok {
		t.Fatalf("expected SlotMadeAvailable, got %T", ev)
	}
	if made.SlotID != "slot-1" || made.ParticipantID != "student-1" || made.ParticipantType != TypeStudent {
		t.Errorf("unexpected event fields: %+v", made)
	}
	if !made.StartTime.Equal(mustTime(t, "2024-03-20T10:00:00Z")) {
		t.Errorf("on-the-hour start must survive rounding, got %v", made.StartTime)
	}

	s := Empty().OnEvent(made)
	if s.Status != StatusAvailable || s.IsEmpty() {
		t.Errorf("expected populated available state, got %+v", s)
	}
}

func TestMakeAvailableRounding(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2024-03-20T10:00:00Z", "2024-03-20T10:00:00Z"},
		{"2024-03-20T09:31:00Z", "2024-03-20T10:00:00Z"},
		{"2024-03-20T09:30:00Z", "2024-03-20T10:00:00Z"},
		{"2024-03-20T09:29:00Z", "2024-03-20T09:00:00Z"},
		{"2024-03-20T08:59:00Z", "2024-03-20T09:00:00Z"},
		{"2024-03-20T23:45:12Z", "2024-03-21T00:00:00Z"},
	}
	for _, tc := range cases {
		ev := Empty().OnCommand(MakeAvailable{
			SlotID:          "slot-1",
			ParticipantID:   "p-1",
			ParticipantType: TypeInstructor,
			StartTime:       mustTime(t, tc.in),
		})
		made := ev.(SlotMadeAvailable)
		if !made.StartTime.Equal(mustTime(t, tc.want)) {
			t.Errorf("%s: expected %s, got %v", tc.in, tc.want, made.StartTime)
		}
	}
}

func TestMakeAvailableIgnoredWhenNotEmpty(t *testing.T) {
	s := availableSlot(t)
	ev := s.OnCommand(MakeAvailable{
		SlotID:          s.SlotID,
		ParticipantID:   "someone-else",
		ParticipantType: TypeStudent,
		StartTime:       mustTime(t, "2024-03-21T09:00:00Z"),
	})
	if ev != nil {
		t.Errorf("re-creation must be a no-op, got %T", ev)
	}
}

func TestMakeUnavailable(t *testing.T) {
	s := availableSlot(t)
	ev := s.OnCommand(MakeUnavailable{SlotID: s.SlotID})
	if _, ok := ev.(SlotMadeUnavailable); !ok {
		t.Fatalf("expected SlotMadeUnavailable, got %T", ev)
	}
	s = s.OnEvent(ev)
	if s.Status != StatusUnavailable {
		t.Errorf("expected unavailable, got %s", s.Status)
	}

	// duplicate command after the state change is a no-op
	if ev := s.OnCommand(MakeUnavailable{SlotID: s.SlotID}); ev != nil {
		t.Errorf("duplicate MakeUnavailable must be a no-op, got %T", ev)
	}
}

func TestMakeUnavailableIgnoredWhenScheduled(t *testing.T) {
	s := scheduledSlot(t, "RES001")
	if ev := s.OnCommand(MakeUnavailable{SlotID: s.SlotID}); ev != nil {
		t.Errorf("scheduled slot must ignore MakeUnavailable, got %T", ev)
	}
}

func TestRequestSlotAccepted(t *testing.T) {
	s := availableSlot(t)
	ev := s.OnCommand(RequestSlot{SlotID: s.SlotID, ReservationID: "RES001", Role: TypeAircraft})
	acc, ok := ev.(RequestAccepted)
	if !ok {
		t.Fatalf("expected RequestAccepted, got %T", ev)
	}
	if acc.ReservationID != "RES001" || acc.Role != TypeAircraft {
		t.Errorf("unexpected event fields: %+v", acc)
	}
	s = s.OnEvent(acc)
	if s.Status != StatusScheduled || s.ReservationID != "RES001" {
		t.Errorf("expected scheduled for RES001, got %+v", s)
	}
}

func TestRequestSlotReplayIsIdempotent(t *testing.T) {
	s := scheduledSlot(t, "RES001")
	ev := s.OnCommand(RequestSlot{SlotID: s.SlotID, ReservationID: "RES001", Role: TypeAircraft})
	if ev != nil {
		t.Errorf("replayed accepted request must produce no event, got %T", ev)
	}
}

func TestRequestSlotRejectedWhenHeldByOther(t *testing.T) {
	s := scheduledSlot(t, "RES001")
	ev := s.OnCommand(RequestSlot{SlotID: s.SlotID, ReservationID: "RES002", Role: TypeAircraft})
	rej, ok := ev.(RequestRejected)
	if !ok {
		t.Fatalf("expected RequestRejected, got %T", ev)
	}
	if rej.ReservationID != "RES002" {
		t.Errorf("rejection must carry the requester's id, got %s", rej.ReservationID)
	}
	after := s.OnEvent(rej)
	if after.Status != StatusScheduled || after.ReservationID != "RES001" {
		t.Errorf("rejection must not change state, got %+v", after)
	}
}

func TestRequestSlotRejectedWhenUnavailable(t *testing.T) {
	s := availableSlot(t)
	s = s.OnEvent(s.OnCommand(MakeUnavailable{SlotID: s.SlotID}))
	ev := s.OnCommand(RequestSlot{SlotID: s.SlotID, ReservationID: "RES001", Role: TypeStudent})
	if _, ok := ev.(RequestRejected); !ok {
		t.Fatalf("expected RequestRejected, got %T", ev)
	}
}

func TestCancelSlot(t *testing.T) {
	s := scheduledSlot(t, "RES001")
	ev := s.OnCommand(CancelSlot{SlotID: s.SlotID, ReservationID: "RES001"})
	if _, ok := ev.(SlotReservationCancelled); !ok {
		t.Fatalf("expected SlotReservationCancelled, got %T", ev)
	}
	s = s.OnEvent(ev)
	if s.Status != StatusAvailable || s.ReservationID != "" {
		t.Errorf("cancel must return the slot to available, got %+v", s)
	}
}

func TestCancelSlotMismatchedReservationIsNoop(t *testing.T) {
	s := scheduledSlot(t, "RES001")
	if ev := s.OnCommand(CancelSlot{SlotID: s.SlotID, ReservationID: "RES999"}); ev != nil {
		t.Errorf("mismatched cancel must be a no-op, got %T", ev)
	}
	if s.Status != StatusScheduled || s.ReservationID != "RES001" {
		t.Errorf("state must be untouched, got %+v", s)
	}
}

func TestCancelSlotNotScheduledIsNoop(t *testing.T) {
	s := availableSlot(t)
	if ev := s.OnCommand(CancelSlot{SlotID: s.SlotID, ReservationID: "RES001"}); ev != nil {
		t.Errorf("cancel on available slot must be a no-op, got %T", ev)
	}
	if ev := Empty().OnCommand(CancelSlot{SlotID: "slot-x", ReservationID: "RES001"}); ev != nil {
		t.Errorf("cancel on empty slot must be a no-op, got %T", ev)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	events := []Event{
		SlotMadeAvailable{SlotID: "slot-1", ParticipantID: "p-1", ParticipantType: TypeStudent, StartTime: mustTime(t, "2024-03-20T10:00:00Z")},
		RequestAccepted{SlotID: "slot-1", ReservationID: "RES001", Role: TypeStudent},
		SlotReservationCancelled{SlotID: "slot-1", ReservationID: "RES001"},
	}
	replayed := Empty()
	for _, e := range events {
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
	if replayed.Status != StatusAvailable || replayed.ReservationID != "" || replayed.SlotID != "slot-1" {
		t.Errorf("replay through codec diverged: %+v", replayed)
	}
}

func TestUnknownEventTypeFails(t *testing.T) {
	if _, err := UnmarshalEvent("SomethingElse", []byte(`{}`)); err == nil {
		t.Error("unknown event type must fail loudly")
	}
}
