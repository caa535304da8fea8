package services

import (
	"encoding/json"
	"time"

	"github.com/Cherishclears/library-backend/models"
	"github.com/rs/zerolog/log"
)

// BorrowSubjectPrefix is the NATS subject root for borrow lifecycle events
const BorrowSubjectPrefix = "library.borrows"

// BorrowSubjectWildcard matches every borrow event
const BorrowSubjectWildcard = BorrowSubjectPrefix + ".>"

// BorrowEventType enum
type BorrowEventType string

const (
	EventBorrowRequested BorrowEventType = "requested"
	EventBorrowApproved  BorrowEventType = "approved"
	EventBorrowRejected  BorrowEventType = "rejected"
	EventBorrowReturned  BorrowEventType = "returned"
	EventBorrowOverdue   BorrowEventType = "overdue"
)

// BorrowEvent is published after a borrow transition commits
type BorrowEvent struct {
	Type       BorrowEventType     `json:"type"`
	BorrowID   uint                `json:"borrowId"`
	UserID     uint                `json:"userId"`
	BookID     uint                `json:"bookId"`
	Status     models.BorrowStatus `json:"status"`
	OccurredAt time.Time           `json:"occurredAt"`
}

// Subject returns the NATS subject the event is published on
func (e BorrowEvent) Subject() string {
	return BorrowSubjectPrefix + "." + string(e.Type)
}

// Publisher is satisfied by *nats.Conn and *natsserver.EmbeddedNATS
type Publisher interface {
	Publish(subject string, data []byte) error
}

// EventBus publishes borrow events. A nil *EventBus drops everything.
type EventBus struct {
	pub Publisher
}

// NewEventBus creates an event bus on top of a publisher
func NewEventBus(pub Publisher) *EventBus {
	return &EventBus{pub: pub}
}

// PublishBorrow emits a borrow event. Publishing is best effort: the
// transition has already committed, so failures are logged and swallowed.
func (b *EventBus) PublishBorrow(eventType BorrowEventType, borrow *models.Borrow) {
	if b == nil || b.pub == nil || borrow == nil {
		return
	}

	evt := BorrowEvent{
		Type:       eventType,
		BorrowID:   borrow.ID,
		UserID:     borrow.UserID,
		BookID:     borrow.BookID,
		Status:     borrow.Status,
		OccurredAt: time.Now().UTC(),
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Uint("borrow_id", borrow.ID).Msg("failed to encode borrow event")
		return
	}
	if err := b.pub.Publish(evt.Subject(), data); err != nil {
		log.Warn().Err(err).Str("subject", evt.Subject()).Uint("borrow_id", borrow.ID).Msg("⚠️ failed to publish borrow event")
	}
}

// DecodeBorrowEvent parses a message published by PublishBorrow
func DecodeBorrowEvent(data []byte) (BorrowEvent, error) {
	var evt BorrowEvent
	err := json.Unmarshal(data, &evt)
	return evt, err
}
