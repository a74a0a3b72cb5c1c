// Package projection maintains the participant-slots read model: one row
// per slot, queryable by participant and status. It consumes the same slot
// events the choreography uses; every write is an idempotent upsert or a
// keyed update, so redelivery and replay are safe.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/you/flight-scheduling/pkg/mq"
)

// Keys the projector binds on the timeslot exchange.
var Bindings = []string{
	"timeslot.made-available",
	"timeslot.made-unavailable",
	"timeslot.cancelled",
	"timeslot.*.accepted",
}

type ParticipantSlot struct {
	SlotID          string `gorm:"primaryKey;size:128"`
	ParticipantID   string `gorm:"index:idx_participant_status,priority:1"`
	ParticipantType string
	StartTime       time.Time
	Status          string `gorm:"index:idx_participant_status,priority:2"`
	ReservationID   string
	UpdatedAt       time.Time
}

func (ParticipantSlot) TableName() string { return "participant_slots" }

type Projector struct{ db *gorm.DB }

func NewProjector(db *gorm.DB) *Projector {
	return &Projector{db: db}
}

func (p *Projector) Migrate() error {
	return p.db.AutoMigrate(&ParticipantSlot{})
}

type madeAvailable struct {
	SlotID          string    `json:"slot_id"`
	ParticipantID   string    `json:"participant_id"`
	ParticipantType string    `json:"participant_type"`
	StartTime       time.Time `json:"start_time"`
}

type slotRef struct {
	SlotID        string `json:"slot_id"`
	ReservationID string `json:"reservation_id"`
}

// Apply folds one slot event into the table. Unknown keys and malformed
// payloads are logged and dropped; only DB errors propagate (and requeue).
func (p *Projector) Apply(ctx context.Context, key string, body []byte) error {
	switch {
	case key == "timeslot.made-available":
		var ev madeAvailable
		if err := json.Unmarshal(body, &ev); err != nil || ev.SlotID == "" {
			log.Printf("[projection] bad payload key=%s err=%v", key, err)
			return nil
		}
		row := ParticipantSlot{
			SlotID:          ev.SlotID,
			ParticipantID:   ev.ParticipantID,
			ParticipantType: ev.ParticipantType,
			StartTime:       ev.StartTime,
			Status:          "available",
		}
		return p.db.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slot_id"}}, UpdateAll: true}).
			Create(&row).Error

	case key == "timeslot.made-unavailable":
		var ev slotRef
		if err := json.Unmarshal(body, &ev); err != nil || ev.SlotID == "" {
			log.Printf("[projection] bad payload key=%s err=%v", key, err)
			return nil
		}
		return p.setStatus(ctx, ev.SlotID, "unavailable", "")

	case key == "timeslot.cancelled":
		var ev slotRef
		if err := json.Unmarshal(body, &ev); err != nil || ev.SlotID == "" {
			log.Printf("[projection] bad payload key=%s err=%v", key, err)
			return nil
		}
		return p.setStatus(ctx, ev.SlotID, "available", "")

	case strings.HasPrefix(key, "timeslot.") && strings.HasSuffix(key, ".accepted"):
		var ev slotRef
		if err := json.Unmarshal(body, &ev); err != nil || ev.SlotID == "" {
			log.Printf("[projection] bad payload key=%s err=%v", key, err)
			return nil
		}
		return p.setStatus(ctx, ev.SlotID, "scheduled", ev.ReservationID)

	default:
		log.Printf("[projection] skip unknown key=%s", key)
		return nil
	}
}

func (p *Projector) setStatus(ctx context.Context, slotID, status, reservationID string) error {
	res := p.db.WithContext(ctx).Model(&ParticipantSlot{}).
		Where("slot_id = ?", slotID).
		Updates(map[string]any{"status": status, "reservation_id": reservationID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", slotID, res.Error)
	}
	// Out-of-order delivery can land an update before made-available; the
	// row will be backfilled when that event arrives, so a miss is fine.
	return nil
}

// ByParticipantAndStatus lists the slots a participant holds in a given
// status, soonest first.
func (p *Projector) ByParticipantAndStatus(ctx context.Context, participantID, status string) ([]ParticipantSlot, error) {
	var out []ParticipantSlot
	err := p.db.WithContext(ctx).
		Where("participant_id = ? AND status = ?", participantID, status).
		Order("start_time ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Worker pumps deliveries from the queue into the projector.
type Worker struct {
	proj *Projector
	cons *mq.Consumer
}

func NewWorker(proj *Projector, cons *mq.Consumer) *Worker {
	return &Worker{proj: proj, cons: cons}
}

func (w *Worker) Run(ctx context.Context) error {
	msgs, err := w.cons.Deliveries(ctx)
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
			if err := w.proj.Apply(ctx, d.RoutingKey, d.Body); err != nil {
				log.Printf("[projection] apply key=%s err=%v -> Nack&requeue", d.RoutingKey, err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
