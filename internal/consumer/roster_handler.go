package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"example.com/signup/internal/domain"
	"example.com/signup/internal/events"
)

// ErrMalformedEvent marks payloads that cannot be projected.
var ErrMalformedEvent = errors.New("malformed membership event")

// RosterSnapshot is the projection state for one activity.
type RosterSnapshot struct {
	Participants    int
	MaxParticipants int
	Version         int64
	LastEventID     string
	UpdatedAt       time.Time
}

// RosterHandler projects membership events into per-activity roster sizes.
type RosterHandler struct {
	mu      sync.RWMutex
	rosters map[string]RosterSnapshot
	logger  *zap.Logger
	now     func() time.Time
}

// NewRosterHandler constructs a RosterHandler.
func NewRosterHandler(logger *zap.Logger) *RosterHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterHandler{
		rosters: make(map[string]RosterSnapshot),
		logger:  logger.Named("roster"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ Handler = (*RosterHandler)(nil)

// Handle implements Handler. Events whose version is not newer than the stored
// snapshot are ignored, so delivery order does not matter.
func (h *RosterHandler) Handle(ctx context.Context, msg Message) error {
	var evt events.MembershipChanged
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		malformedCounter.Inc()
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := validate(evt); err != nil {
		malformedCounter.Inc()
		return err
	}

	eventsCounter.WithLabelValues(evt.EventType).Inc()
	lagGauge.Set(h.now().Sub(evt.OccurredAt).Seconds())

	h.mu.Lock()
	defer h.mu.Unlock()

	current, ok := h.rosters[evt.Activity]
	if ok && evt.Version <= current.Version {
		h.logger.Debug("skipping stale event",
			zap.String("event_id", evt.EventID),
			zap.String("activity", evt.Activity),
			zap.Int64("version", evt.Version),
			zap.Int64("current_version", current.Version),
		)
		return nil
	}
	h.rosters[evt.Activity] = RosterSnapshot{
		Participants:    evt.Participants,
		MaxParticipants: evt.MaxParticipants,
		Version:         evt.Version,
		LastEventID:     evt.EventID,
		UpdatedAt:       evt.OccurredAt,
	}
	rosterGauge.WithLabelValues(evt.Activity).Set(float64(evt.Participants))

	h.logger.Info("roster updated",
		zap.String("event_type", evt.EventType),
		zap.String("activity", evt.Activity),
		zap.String("email", evt.Email),
		zap.Int("participants", evt.Participants),
		zap.Int("max_participants", evt.MaxParticipants),
		zap.Int64("version", evt.Version),
	)
	return nil
}

// Snapshot returns the projection for an activity.
func (h *RosterHandler) Snapshot(activity string) (RosterSnapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap, ok := h.rosters[activity]
	return snap, ok
}

func validate(evt events.MembershipChanged) error {
	switch domain.MembershipChange(evt.EventType) {
	case domain.MembershipSignedUp, domain.MembershipUnregistered:
	default:
		return fmt.Errorf("%w: unknown event_type %q", ErrMalformedEvent, evt.EventType)
	}
	if strings.TrimSpace(evt.Activity) == "" {
		return fmt.Errorf("%w: missing activity", ErrMalformedEvent)
	}
	if evt.Version <= 0 {
		return fmt.Errorf("%w: missing version", ErrMalformedEvent)
	}
	if evt.OccurredAt.IsZero() {
		return fmt.Errorf("%w: missing occurred_at", ErrMalformedEvent)
	}
	return nil
}
