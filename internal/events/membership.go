// Package events defines the membership event payloads shared by the API and the roster consumer.
package events

import (
	"time"

	"example.com/signup/internal/domain"
)

// Header keys attached to every Kafka record.
const (
	HeaderEventType = "event_type"
	HeaderEventID   = "event_id"
)

// MembershipChanged is emitted after a successful signup or unregister.
type MembershipChanged struct {
	EventID         string    `json:"event_id"`
	EventType       string    `json:"event_type"`
	Activity        string    `json:"activity"`
	Email           string    `json:"email"`
	Participants    int       `json:"participants"`
	MaxParticipants int       `json:"max_participants"`
	Version         int64     `json:"version"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// FromDomain converts a domain event into its wire payload.
func FromDomain(evt domain.MembershipEvent) MembershipChanged {
	return MembershipChanged{
		EventID:         evt.ID,
		EventType:       string(evt.Type),
		Activity:        evt.Activity,
		Email:           evt.Email,
		Participants:    evt.Participants,
		MaxParticipants: evt.MaxParticipants,
		Version:         evt.Version,
		OccurredAt:      evt.OccurredAt.UTC(),
	}
}
