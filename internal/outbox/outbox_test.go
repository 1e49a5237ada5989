package outbox

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/signup/internal/domain"
)

func TestOutboxTakePreservesOrder(t *testing.T) {
	box := New(10)
	for i := 0; i < 3; i++ {
		require.NoError(t, box.Publish(context.Background(), event(i)))
	}

	first := box.Take(2)
	require.Len(t, first, 2)
	require.Equal(t, "evt-0", first[0].EventID)
	require.Equal(t, "evt-1", first[1].EventID)
	require.Equal(t, 1, box.Len())

	rest := box.Take(0)
	require.Len(t, rest, 1)
	require.Equal(t, "evt-2", rest[0].EventID)
	require.Nil(t, box.Take(5))
}

func TestOutboxEvictsOldestWhenFull(t *testing.T) {
	box := New(2)
	for i := 0; i < 3; i++ {
		require.NoError(t, box.Publish(context.Background(), event(i)))
	}

	batch := box.Take(10)
	require.Len(t, batch, 2)
	require.Equal(t, "evt-1", batch[0].EventID)
	require.Equal(t, "evt-2", batch[1].EventID)
}

func TestOutboxRequeueGoesToFront(t *testing.T) {
	box := New(10)
	for i := 0; i < 3; i++ {
		require.NoError(t, box.Publish(context.Background(), event(i)))
	}

	batch := box.Take(2)
	box.Requeue(batch)

	all := box.Take(10)
	require.Len(t, all, 3)
	for i, evt := range all {
		require.Equal(t, fmt.Sprintf("evt-%d", i), evt.EventID)
	}
}

func event(i int) domain.MembershipEvent {
	return domain.MembershipEvent{
		ID:              fmt.Sprintf("evt-%d", i),
		Type:            domain.MembershipSignedUp,
		Activity:        "Chess Club",
		Email:           fmt.Sprintf("student%d@example.com", i),
		Participants:    i + 1,
		MaxParticipants: 12,
		OccurredAt:      time.Date(2025, time.September, 1, 15, 30, i, 0, time.UTC),
	}
}
