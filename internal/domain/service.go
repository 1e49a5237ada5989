// Package domain defines the business logic for the activity signup service.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrActivityNotFound is returned when an activity name is not in the catalog.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadySignedUp is returned when the email is already on the roster.
	ErrAlreadySignedUp = errors.New("student already signed up for this activity")
	// ErrNotSignedUp is returned when unregistering an email that is not on the roster.
	ErrNotSignedUp = errors.New("student is not signed up for this activity")
	// ErrInvalidEmail is returned for a blank email.
	ErrInvalidEmail = errors.New("email is required")
)

// MembershipChange identifies the kind of roster mutation.
type MembershipChange string

const (
	MembershipSignedUp     MembershipChange = "activity.signed_up"
	MembershipUnregistered MembershipChange = "activity.unregistered"
)

// Repository owns the activity catalog. Implementations serialize mutations
// and return copies that callers may keep.
type Repository interface {
	List(ctx context.Context) ([]Activity, error)
	Get(ctx context.Context, name string) (*Activity, error)
	AddParticipant(ctx context.Context, name, email string) (*Activity, error)
	RemoveParticipant(ctx context.Context, name, email string) (*Activity, error)
}

// MembershipEvent describes a completed signup or unregister.
type MembershipEvent struct {
	ID              string
	Type            MembershipChange
	Activity        string
	Email           string
	Participants    int
	MaxParticipants int
	// Version is the activity's roster version after the change.
	Version    int64
	OccurredAt time.Time
}

// Publisher forwards membership events downstream. Publish must not block on I/O.
type Publisher interface {
	Publish(ctx context.Context, event MembershipEvent) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, MembershipEvent) error { return nil }

// Service orchestrates catalog reads and roster mutations.
type Service struct {
	repo      Repository
	publisher Publisher
	now       func() time.Time
}

// NewService constructs a Service. A nil publisher disables events.
func NewService(repo Repository, publisher Publisher) *Service {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Service{repo: repo, publisher: publisher, now: func() time.Time { return time.Now().UTC() }}
}

// ListActivities returns the whole catalog.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	return s.repo.List(ctx)
}

// GetActivity fetches one activity by name.
func (s *Service) GetActivity(ctx context.Context, name string) (*Activity, error) {
	activity, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// Signup adds email to the named activity.
func (s *Service) Signup(ctx context.Context, name, email string) (*Activity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	activity, err := s.repo.AddParticipant(ctx, name, email)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, MembershipSignedUp, *activity, email)
	return activity, nil
}

// Unregister removes email from the named activity.
func (s *Service) Unregister(ctx context.Context, name, email string) (*Activity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	activity, err := s.repo.RemoveParticipant(ctx, name, email)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, MembershipUnregistered, *activity, email)
	return activity, nil
}

// publish is best effort; the roster change has already been applied.
func (s *Service) publish(ctx context.Context, change MembershipChange, activity Activity, email string) {
	_ = s.publisher.Publish(ctx, MembershipEvent{
		ID:              uuid.NewString(),
		Type:            change,
		Activity:        activity.Name,
		Email:           email,
		Participants:    len(activity.Participants),
		MaxParticipants: activity.MaxParticipants,
		Version:         activity.Version,
		OccurredAt:      s.now(),
	})
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return "", ErrInvalidEmail
	}
	return trimmed, nil
}
