// Package consumer closes the inbound half of the choreography loop: slot
// outcome events become availability commands on the owning reservation.
// Delivery is at-least-once and unordered; idempotency is structural (a
// replayed outcome hits the aggregate's no-op guards).
package consumer

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/you/flight-scheduling/pkg/mq"
	"github.com/you/flight-scheduling/services/reservation-service/internal/domain"
	"github.com/you/flight-scheduling/services/reservation-service/internal/service"
)

// Keys this consumer binds on the timeslot exchange.
var Bindings = []string{"timeslot.*.accepted", "timeslot.*.rejected"}

type slotOutcome struct {
	SlotID        string `json:"slot_id"`
	ReservationID string `json:"reservation_id"`
	Role          string `json:"role"`
}

type SlotConsumer struct {
	svc  *service.ReservationSvc
	cons *mq.Consumer
}

func NewSlotConsumer(svc *service.ReservationSvc, cons *mq.Consumer) *SlotConsumer {
	return &SlotConsumer{svc: svc, cons: cons}
}

func (c *SlotConsumer) Run(ctx context.Context) error {
	msgs, err := c.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := c.Handle(ctx, d.RoutingKey, d.Body); err != nil {
				log.Printf("[reservation-consumer] handle key=%s err=%v -> Nack&requeue", d.RoutingKey, err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle translates one delivery into a reservation command. A nil return
// acks the message; malformed messages are acked too (requeueing a poison
// message loops forever), only infrastructure errors requeue.
func (c *SlotConsumer) Handle(ctx context.Context, key string, body []byte) error {
	role, action, ok := parseKey(key)
	if !ok {
		log.Printf("[reservation-consumer] skip unknown key=%s", key)
		return nil
	}
	var ev slotOutcome
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Printf("[reservation-consumer] unmarshal key=%s: %v", key, err)
		return nil
	}
	if ev.ReservationID == "" {
		log.Printf("[reservation-consumer] invalid payload key=%s", key)
		return nil
	}

	switch action {
	case "accepted":
		return c.svc.MarkAvailable(ctx, ev.ReservationID, role)
	case "rejected":
		return c.svc.MarkUnavailable(ctx, ev.ReservationID, role)
	}
	return nil
}

// parseKey splits "timeslot.{role}.{accepted|rejected}".
func parseKey(key string) (domain.ParticipantType, string, bool) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != "timeslot" {
		return "", "", false
	}
	role, err := domain.ParseParticipantType(parts[1])
	if err != nil {
		return "", "", false
	}
	if parts[2] != "accepted" && parts[2] != "rejected" {
		return "", "", false
	}
	return role, parts[2], true
}
