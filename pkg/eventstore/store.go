// Package eventstore is an append-only per-aggregate event log on gorm.
// Concurrency control is optimistic: callers pass the version they loaded
// and Append fails with ErrConflict if the log has moved past it. A unique
// index on (aggregate_id, seq) backstops the in-transaction check, so two
// racing writers can never both commit the same sequence number.
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrConflict = errors.New("version_conflict")

// Record is one committed event. Seq starts at 1 and is dense per aggregate;
// the aggregate's version equals the Seq of its last record.
type Record struct {
	ID          uint   `gorm:"primaryKey"`
	AggregateID string `gorm:"size:128;uniqueIndex:idx_aggregate_seq,priority:1"`
	Seq         int    `gorm:"uniqueIndex:idx_aggregate_seq,priority:2"`
	EventType   string `gorm:"size:64"`
	Payload     datatypes.JSON
	CreatedAt   time.Time
}

func (Record) TableName() string { return "events" }

// Event is what domain codecs hand the store for appending.
type Event struct {
	Type    string
	Payload []byte
}

type Store struct{ db *gorm.DB }

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&Record{})
}

// Load returns the ordered event log for one aggregate. An empty slice means
// the aggregate does not exist yet.
func (s *Store) Load(ctx context.Context, aggregateID string) ([]Record, error) {
	var recs []Record
	err := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("seq ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", aggregateID, err)
	}
	return recs, nil
}

// Append commits events after expectedVersion. expectedVersion is the number
// of events the caller replayed before deciding; 0 means a brand new aggregate.
func (s *Store) Append(ctx context.Context, aggregateID string, expectedVersion int, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current int64
		if err := tx.Model(&Record{}).Where("aggregate_id = ?", aggregateID).Count(&current).Error; err != nil {
			return err
		}
		if int(current) != expectedVersion {
			return ErrConflict
		}
		recs := make([]Record, 0, len(events))
		for i, ev := range events {
			recs = append(recs, Record{
				AggregateID: aggregateID,
				Seq:         expectedVersion + 1 + i,
				EventType:   ev.Type,
				Payload:     datatypes.JSON(ev.Payload),
			})
		}
		return tx.Create(&recs).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}
