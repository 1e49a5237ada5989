package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignupPublishesEvent(t *testing.T) {
	repo := newStubRepo(Activity{Name: "Chess Club", MaxParticipants: 12})
	pub := &recordingPublisher{}
	svc := NewService(repo, pub)

	activity, err := svc.Signup(context.Background(), "Chess Club", "  a@example.com ")
	require.NoError(t, err)
	require.Equal(t, []string{"a@example.com"}, activity.Participants)

	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	require.Equal(t, MembershipSignedUp, evt.Type)
	require.Equal(t, "Chess Club", evt.Activity)
	require.Equal(t, "a@example.com", evt.Email)
	require.Equal(t, 1, evt.Participants)
	require.Equal(t, 12, evt.MaxParticipants)
	require.Equal(t, int64(1), evt.Version)
	require.NotEmpty(t, evt.ID)
	require.False(t, evt.OccurredAt.IsZero())
}

func TestUnregisterPublishesEvent(t *testing.T) {
	repo := newStubRepo(Activity{Name: "Chess Club", MaxParticipants: 12, Participants: []string{"a@example.com"}})
	pub := &recordingPublisher{}
	svc := NewService(repo, pub)

	activity, err := svc.Unregister(context.Background(), "Chess Club", "a@example.com")
	require.NoError(t, err)
	require.Empty(t, activity.Participants)
	require.Len(t, pub.events, 1)
	require.Equal(t, MembershipUnregistered, pub.events[0].Type)
	require.Equal(t, 0, pub.events[0].Participants)
	require.Equal(t, int64(1), pub.events[0].Version)
}

func TestEventsCarryIncreasingVersions(t *testing.T) {
	repo := newStubRepo(Activity{Name: "Chess Club"})
	pub := &recordingPublisher{}
	svc := NewService(repo, pub)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "Chess Club", "a@example.com")
	require.NoError(t, err)
	_, err = svc.Signup(ctx, "Chess Club", "b@example.com")
	require.NoError(t, err)
	_, err = svc.Unregister(ctx, "Chess Club", "a@example.com")
	require.NoError(t, err)

	require.Len(t, pub.events, 3)
	for i, evt := range pub.events {
		require.Equal(t, int64(i+1), evt.Version)
	}
}

func TestFailedMutationsDoNotPublish(t *testing.T) {
	repo := newStubRepo(Activity{Name: "Chess Club", Participants: []string{"a@example.com"}})
	pub := &recordingPublisher{}
	svc := NewService(repo, pub)
	ctx := context.Background()

	_, err := svc.Signup(ctx, "Chess Club", "a@example.com")
	require.ErrorIs(t, err, ErrAlreadySignedUp)

	_, err = svc.Unregister(ctx, "Chess Club", "b@example.com")
	require.ErrorIs(t, err, ErrNotSignedUp)

	_, err = svc.Signup(ctx, "Nope", "a@example.com")
	require.ErrorIs(t, err, ErrActivityNotFound)

	_, err = svc.Signup(ctx, "Chess Club", "   ")
	require.ErrorIs(t, err, ErrInvalidEmail)

	require.Empty(t, pub.events)
}

func TestPublishErrorDoesNotFailSignup(t *testing.T) {
	repo := newStubRepo(Activity{Name: "Chess Club"})
	svc := NewService(repo, failingPublisher{})

	_, err := svc.Signup(context.Background(), "Chess Club", "a@example.com")
	require.NoError(t, err)
}

func TestGetActivityNotFound(t *testing.T) {
	svc := NewService(newStubRepo(), nil)

	_, err := svc.GetActivity(context.Background(), "Chess Club")
	require.ErrorIs(t, err, ErrActivityNotFound)
}

func TestSpotsLeftNeverNegative(t *testing.T) {
	a := Activity{MaxParticipants: 1, Participants: []string{"a", "b"}}
	require.Equal(t, 0, a.SpotsLeft())

	a = Activity{MaxParticipants: 3, Participants: []string{"a"}}
	require.Equal(t, 2, a.SpotsLeft())
}

type stubRepo struct {
	activities map[string]*Activity
}

func newStubRepo(seed ...Activity) *stubRepo {
	r := &stubRepo{activities: make(map[string]*Activity)}
	for _, a := range seed {
		a := a.Clone()
		r.activities[a.Name] = &a
	}
	return r
}

func (r *stubRepo) List(context.Context) ([]Activity, error) {
	out := make([]Activity, 0, len(r.activities))
	for _, a := range r.activities {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (r *stubRepo) Get(_ context.Context, name string) (*Activity, error) {
	a, ok := r.activities[name]
	if !ok {
		return nil, nil
	}
	out := a.Clone()
	return &out, nil
}

func (r *stubRepo) AddParticipant(_ context.Context, name, email string) (*Activity, error) {
	a, ok := r.activities[name]
	if !ok {
		return nil, ErrActivityNotFound
	}
	if a.HasParticipant(email) {
		return nil, ErrAlreadySignedUp
	}
	a.Participants = append(a.Participants, email)
	a.Version++
	out := a.Clone()
	return &out, nil
}

func (r *stubRepo) RemoveParticipant(_ context.Context, name, email string) (*Activity, error) {
	a, ok := r.activities[name]
	if !ok {
		return nil, ErrActivityNotFound
	}
	kept := a.Participants[:0]
	found := false
	for _, p := range a.Participants {
		if p == email {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return nil, ErrNotSignedUp
	}
	a.Participants = kept
	a.Version++
	out := a.Clone()
	return &out, nil
}

type recordingPublisher struct {
	events []MembershipEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt MembershipEvent) error {
	p.events = append(p.events, evt)
	return nil
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, MembershipEvent) error {
	return errors.New("broker unavailable")
}
