package domain

import (
	"encoding/json"
	"fmt"
)

// MarshalEvent turns an event into its stored/published form.
func MarshalEvent(e Event) (string, []byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	return e.EventType(), b, nil
}

// UnmarshalEvent is the inverse, used when replaying the stored log. An
// unknown type name is an error, not a skip: the log and the code must agree.
func UnmarshalEvent(eventType string, data []byte) (Event, error) {
	var (
		e   Event
		err error
	)
	switch eventType {
	case SlotMadeAvailable{}.EventType():
		var ev SlotMadeAvailable
		err = json.Unmarshal(data, &ev)
		e = ev
	case SlotMadeUnavailable{}.EventType():
		var ev SlotMadeUnavailable
		err = json.Unmarshal(data, &ev)
		e = ev
	case RequestAccepted{}.EventType():
		var ev RequestAccepted
		err = json.Unmarshal(data, &ev)
		e = ev
	case RequestRejected{}.EventType():
		var ev RequestRejected
		err = json.Unmarshal(data, &ev)
		e = ev
	case SlotReservationCancelled{}.EventType():
		var ev SlotReservationCancelled
		err = json.Unmarshal(data, &ev)
		e = ev
	default:
		return nil, fmt.Errorf("unknown timeslot event type %q", eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
	}
	return e, nil
}
