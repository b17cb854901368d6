package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the delivery status of a notification event
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusDelivered OutboxStatus = "delivered"
)

// NotificationEvent is an outbox row written in the same transaction as the
// business mutation it announces. Delivery is performed outside this module.
type NotificationEvent struct {
	ScopedEntity
	EventID       uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex" json:"event_id"`
	EventType     string       `gorm:"type:varchar(64);not null;index" json:"event_type"`
	AggregateID   uuid.UUID    `gorm:"type:uuid;not null" json:"aggregate_id"`
	AggregateType string       `gorm:"type:varchar(64);not null" json:"aggregate_type"`
	Payload       string       `gorm:"type:text;not null" json:"payload"`
	Status        OutboxStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	DeliveredAt   *time.Time   `json:"delivered_at,omitempty"`
}

// TableName returns the table name for GORM
func (NotificationEvent) TableName() string {
	return "ledger_notification_events"
}

// NewNotificationEvent serializes event into a pending outbox row
func NewNotificationEvent(event DomainEvent) (*NotificationEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s event: %w", event.EventType(), err)
	}
	return &NotificationEvent{
		ScopedEntity:  NewScopedEntity(event.Scope()),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       string(payload),
		Status:        OutboxStatusPending,
	}, nil
}

// MarkDelivered records a successful hand-off to the dispatcher
func (e *NotificationEvent) MarkDelivered(now time.Time) error {
	if e.Status != OutboxStatusPending {
		return errors.New("only pending events can be marked delivered")
	}
	e.Status = OutboxStatusDelivered
	e.DeliveredAt = &now
	e.Touch(now)
	return nil
}
