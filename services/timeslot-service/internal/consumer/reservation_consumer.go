// Package consumer turns reservation intent events into slot commands:
// "wants-slot" becomes a hold request, the cancellation cascade becomes a
// release. At-least-once delivery; replays land on the slot aggregate's
// no-op guards.
package consumer

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/you/flight-scheduling/pkg/mq"
	"github.com/you/flight-scheduling/services/timeslot-service/internal/domain"
	"github.com/you/flight-scheduling/services/timeslot-service/internal/service"
)

// Keys this consumer binds on the reservation exchange.
var Bindings = []string{"reservation.*.wants-slot", "reservation.*.slot-cancelled"}

type slotIntent struct {
	ReservationID string `json:"reservation_id"`
	SlotID        string `json:"slot_id"`
}

type ReservationConsumer struct {
	svc  *service.TimeSlotSvc
	cons *mq.Consumer
}

func NewReservationConsumer(svc *service.TimeSlotSvc, cons *mq.Consumer) *ReservationConsumer {
	return &ReservationConsumer{svc: svc, cons: cons}
}

func (c *ReservationConsumer) Run(ctx context.Context) error {
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
				log.Printf("[timeslot-consumer] handle key=%s err=%v -> Nack&requeue", d.RoutingKey, err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle translates one delivery into a slot command. Malformed messages
// are acked (poison otherwise); only infrastructure errors requeue.
func (c *ReservationConsumer) Handle(ctx context.Context, key string, body []byte) error {
	role, action, ok := parseKey(key)
	if !ok {
		log.Printf("[timeslot-consumer] skip unknown key=%s", key)
		return nil
	}
	var ev slotIntent
	if err := json.Unmarshal(body, &ev); err != nil {
		log.Printf("[timeslot-consumer] unmarshal key=%s: %v", key, err)
		return nil
	}
	if ev.SlotID == "" || ev.ReservationID == "" {
		log.Printf("[timeslot-consumer] invalid payload key=%s", key)
		return nil
	}

	switch action {
	case "wants-slot":
		return c.svc.Request(ctx, ev.SlotID, ev.ReservationID, role)
	case "slot-cancelled":
		return c.svc.Cancel(ctx, ev.SlotID, ev.ReservationID)
	}
	return nil
}

// parseKey splits "reservation.{role}.{wants-slot|slot-cancelled}".
func parseKey(key string) (domain.ParticipantType, string, bool) {
	parts := strings.Split(key, ".")
	if len(parts) != 3 || parts[0] != "reservation" {
		return "", "", false
	}
	role, err := domain.ParseParticipantType(parts[1])
	if err != nil {
		return "", "", false
	}
	if parts[2] != "wants-slot" && parts[2] != "slot-cancelled" {
		return "", "", false
	}
	return role, parts[2], true
}
