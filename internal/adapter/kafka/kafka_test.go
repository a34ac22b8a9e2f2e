package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/member-map-geocoder/internal/config"
	"github.com/couchcryptid/member-map-geocoder/internal/observability"
	"github.com/couchcryptid/member-map-geocoder/internal/reconcile"
)

func TestSerializeReport(t *testing.T) {
	finished := time.Date(2024, 6, 1, 12, 0, 30, 0, time.UTC)
	report := reconcile.RunReport{
		RunID:      "run-1",
		Provider:   "nominatim",
		Status:     reconcile.RunAborted,
		Processed:  3,
		Counters:   reconcile.Counters{Eligible: 3, Attempted: 3, OK: 2, FailedException: 1},
		StartedAt:  finished.Add(-30 * time.Second),
		FinishedAt: finished,
		Error:      "nominatim: status 503",
	}

	msg, err := serializeReport(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("run-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"status":"aborted"`)
	assert.Contains(t, string(msg.Value), `"failed_exception":1`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "status", msg.Headers[0].Key)
	assert.Equal(t, []byte("aborted"), msg.Headers[0].Value)
	assert.Equal(t, "finished_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-06-01T12:00:30Z"), msg.Headers[1].Value)
}

func TestSerializeReport_OmitsEmptyError(t *testing.T) {
	msg, err := serializeReport(reconcile.RunReport{RunID: "run-2", Status: reconcile.RunCompleted})
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Value), `"error"`)
}

func TestNewPublisher(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"b1:9092"}, KafkaReportTopic: "reports"}
	p := NewPublisher(cfg, observability.DiscardLogger())
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, "reports", p.writer.Topic)
	assert.Equal(t, "b1:9092", p.writer.Addr.String())
}

func TestPublisher_CloseWithoutWrites(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"b1:9092"}, KafkaReportTopic: "reports"}
	p := NewPublisher(cfg, observability.DiscardLogger())
	require.NoError(t, p.Close())
}

var _ reconcile.Publisher = (*Publisher)(nil)
