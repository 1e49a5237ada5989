package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "HTTP_ADDRESS", "POSTGRES_URL", "KAFKA_BROKERS", "OUTBOX_POLL_INTERVAL",
		"OUTBOX_BATCH_SIZE", "OUTBOX_CAPACITY", "LOG_LEVEL", "SHUTDOWN_TIMEOUT", "ACTIVITY_EVENTS_TOPIC")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Empty(t, cfg.PostgresURL)
	require.Empty(t, cfg.KafkaBrokers)
	require.False(t, cfg.EventsEnabled())
	require.Equal(t, "activity_signups", cfg.EventsTopic)
	require.Equal(t, 50, cfg.OutboxBatchSize)
	require.Equal(t, 1024, cfg.OutboxCapacity)
	require.Equal(t, time.Second, cfg.OutboxPollInterval)
	require.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", ":9090")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("OUTBOX_BATCH_SIZE", "10")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress)
	require.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	require.True(t, cfg.EventsEnabled())
	require.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
	require.Equal(t, 10, cfg.OutboxBatchSize)
	require.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	cases := map[string]struct {
		key   string
		value string
		want  string
	}{
		"duration without unit": {key: "OUTBOX_POLL_INTERVAL", value: "500", want: "parse env:"},
		"non numeric batch":     {key: "OUTBOX_BATCH_SIZE", value: "ten", want: "parse env:"},
		"non numeric capacity":  {key: "OUTBOX_CAPACITY", value: "1k", want: "parse env:"},
		"zero batch":            {key: "OUTBOX_BATCH_SIZE", value: "0", want: "OUTBOX_BATCH_SIZE must be positive"},
		"negative timeout":      {key: "SHUTDOWN_TIMEOUT", value: "-1s", want: "SHUTDOWN_TIMEOUT must be positive"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
