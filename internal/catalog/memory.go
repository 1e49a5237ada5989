// Package catalog holds the in-process activity catalog.
package catalog

import (
	"context"
	"sync"

	"example.com/signup/internal/domain"
	"example.com/signup/internal/observability"
)

// InMemoryRepository stores the catalog in process memory. Rosters reset on restart.
type InMemoryRepository struct {
	mu         sync.RWMutex
	activities map[string]*domain.Activity
	order      []string
}

// NewInMemoryRepository constructs a repository populated with Seed.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryFrom(Seed())
}

// NewInMemoryRepositoryFrom constructs a repository populated with the given activities.
// Later duplicates of a name replace earlier ones.
func NewInMemoryRepositoryFrom(seed []domain.Activity) *InMemoryRepository {
	repo := &InMemoryRepository{activities: make(map[string]*domain.Activity, len(seed))}
	for _, activity := range seed {
		activity = activity.Clone()
		activity.Participants = dedupe(activity.Participants)
		if _, exists := repo.activities[activity.Name]; !exists {
			repo.order = append(repo.order, activity.Name)
		}
		repo.activities[activity.Name] = &activity
		observability.RecordParticipants(activity.Name, len(activity.Participants))
	}
	return repo
}

// List implements domain.Repository. Activities come back in seed order.
func (r *InMemoryRepository) List(ctx context.Context) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Activity, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.activities[name].Clone())
	}
	return out, nil
}

// Get implements domain.Repository. A missing activity yields (nil, nil).
func (r *InMemoryRepository) Get(ctx context.Context, name string) (*domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	activity, ok := r.activities[name]
	if !ok {
		return nil, nil
	}
	out := activity.Clone()
	return &out, nil
}

// AddParticipant implements domain.Repository.
func (r *InMemoryRepository) AddParticipant(ctx context.Context, name, email string) (*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[name]
	if !ok {
		return nil, domain.ErrActivityNotFound
	}
	if activity.HasParticipant(email) {
		return nil, domain.ErrAlreadySignedUp
	}
	activity.Participants = append(activity.Participants, email)
	activity.Version++
	observability.RecordParticipants(name, len(activity.Participants))

	out := activity.Clone()
	return &out, nil
}

// RemoveParticipant implements domain.Repository.
func (r *InMemoryRepository) RemoveParticipant(ctx context.Context, name, email string) (*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[name]
	if !ok {
		return nil, domain.ErrActivityNotFound
	}
	idx := -1
	for i, p := range activity.Participants {
		if p == email {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, domain.ErrNotSignedUp
	}
	activity.Participants = append(activity.Participants[:idx], activity.Participants[idx+1:]...)
	activity.Version++
	observability.RecordParticipants(name, len(activity.Participants))

	out := activity.Clone()
	return &out, nil
}

func dedupe(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, email := range emails {
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}
	return out
}
