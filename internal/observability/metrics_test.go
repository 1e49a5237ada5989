package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordParticipantsSetsGauge(t *testing.T) {
	RecordParticipants("Metrics Club", 3)
	require.Equal(t, 3.0, testutil.ToFloat64(participantsGauge.WithLabelValues("Metrics Club")))

	RecordParticipants("Metrics Club", 1)
	require.Equal(t, 1.0, testutil.ToFloat64(participantsGauge.WithLabelValues("Metrics Club")))
}

func TestRecordMembershipIncrements(t *testing.T) {
	counter := membershipCounter.WithLabelValues(OperationSignup, OutcomeRejected)
	before := testutil.ToFloat64(counter)

	RecordMembership(OperationSignup, OutcomeRejected)
	RecordMembership(OperationSignup, OutcomeRejected)

	require.Equal(t, before+2, testutil.ToFloat64(counter))
}
