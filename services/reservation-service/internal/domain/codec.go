package domain

import (
	"encoding/json"
	"fmt"
)

func MarshalEvent(e Event) (string, []byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	return e.EventType(), b, nil
}

func UnmarshalEvent(eventType string, data []byte) (Event, error) {
	var (
		e   Event
		err error
	)
	switch eventType {
	case ReservationCreated{}.EventType():
		var ev ReservationCreated
		err = json.Unmarshal(data, &ev)
		e = ev
	case WantsTimeSlot{}.EventType():
		var ev WantsTimeSlot
		err = json.Unmarshal(data, &ev)
		e = ev
	case LegAvailable{}.EventType():
		var ev LegAvailable
		err = json.Unmarshal(data, &ev)
		e = ev
	case LegUnavailable{}.EventType():
		var ev LegUnavailable
		err = json.Unmarshal(data, &ev)
		e = ev
	case SlotBookingCancelled{}.EventType():
		var ev SlotBookingCancelled
		err = json.Unmarshal(data, &ev)
		e = ev
	case ReservationConfirmed{}.EventType():
		var ev ReservationConfirmed
		err = json.Unmarshal(data, &ev)
		e = ev
	case ReservationCancelled{}.EventType():
		var ev ReservationCancelled
		err = json.Unmarshal(data, &ev)
		e = ev
	default:
		return nil, fmt.Errorf("unknown reservation event type %q", eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
	}
	return e, nil
}
