// Package queue defines the reservation lifecycle events exchanged over the
// message broker, together with the publisher used by the service layer and
// the background consumer that writes them to an audit log.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// EventType names a reservation lifecycle transition.
type EventType string

const (
	EventCreated   EventType = "reservation.created"
	EventModified  EventType = "reservation.modified"
	EventCancelled EventType = "reservation.cancelled"
)

// ReservationEvent is published after a mutation has been made durable.  It
// carries a full snapshot of the reservation so downstream consumers can log,
// notify, or trigger analytics without reading the reservations file.
//
// Fields:
//   - EventID: random UUID, also used as the AMQP message id.
//   - Type: one of the EventType constants.
//   - Reservation: the record after the change; for cancellations, the
//     record as it was before removal.
//   - OccurredAt: RFC 3339 timestamp in UTC.
type ReservationEvent struct {
	EventID     string            `json:"event_id"`
	Type        EventType         `json:"type"`
	Reservation model.Reservation `json:"reservation"`
	OccurredAt  string            `json:"occurred_at"`
}

// NewEvent stamps a fresh event for r.
func NewEvent(t EventType, r model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		EventID:     uuid.NewString(),
		Type:        t,
		Reservation: r,
		OccurredAt:  at.UTC().Format(time.RFC3339),
	}
}

// DecodeEvent parses a message body and rejects payloads without a type or
// reservation id.
func DecodeEvent(body []byte) (ReservationEvent, error) {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ReservationEvent{}, fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.Reservation.ID == "" {
		return ReservationEvent{}, fmt.Errorf("incomplete event %q", ev.EventID)
	}
	return ev, nil
}

// verb renders the event type for the audit log.
func (t EventType) verb() string {
	switch t {
	case EventCreated:
		return "Reservation confirmed"
	case EventModified:
		return "Reservation modified"
	case EventCancelled:
		return "Reservation cancelled"
	default:
		return string(t)
	}
}
