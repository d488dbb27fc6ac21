package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Checkin.SuppressionWindow)
	assert.Equal(t, time.Duration(0), cfg.Checkin.OpensBefore)
	assert.Equal(t, "badgehub.events", cfg.Kafka.Topic)
	assert.Equal(t, 30*time.Second, cfg.Ranking.CacheTTL)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Empty(t, cfg.Tracing.Endpoint)
	assert.Equal(t, "badgehub", cfg.Tracing.ServiceName)
	assert.InDelta(t, 1.0, cfg.Tracing.SampleRatio, 0)
	assert.True(t, cfg.InMemory())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/badgehub")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,k1:9092,")
	t.Setenv("CHECKIN_OPENS_BEFORE", "30m")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("TRACING_ENDPOINT", "http://collector:4318")
	t.Setenv("TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.False(t, cfg.InMemory())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Minute, cfg.Checkin.OpensBefore)
	assert.Equal(t, "http://collector:4318", cfg.Tracing.Endpoint)
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-9)
}

func TestParseErrors(t *testing.T) {
	t.Run("unparsable duration", func(t *testing.T) {
		t.Setenv("SUPPRESSION_WINDOW", "soon")
		_, err := Parse()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})

	t.Run("negative window", func(t *testing.T) {
		t.Setenv("SUPPRESSION_WINDOW", "-1m")
		_, err := Parse()
		require.Error(t, err)
	})

	t.Run("sample ratio out of range", func(t *testing.T) {
		t.Setenv("TRACING_SAMPLE_RATIO", "1.5")
		_, err := Parse()
		require.Error(t, err)
	})

	t.Run("unknown log format", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "xml")
		_, err := Parse()
		require.Error(t, err)
	})
}
