//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/member-map-geocoder/internal/adapter/kafka"
	"github.com/couchcryptid/member-map-geocoder/internal/adapter/sqlite"
	"github.com/couchcryptid/member-map-geocoder/internal/config"
	"github.com/couchcryptid/member-map-geocoder/internal/domain"
	"github.com/couchcryptid/member-map-geocoder/internal/observability"
	"github.com/couchcryptid/member-map-geocoder/internal/reconcile"
)

const testReportTopic = "test-geocode-run-reports"

// staticGeocoder resolves a fixed set of queries and reports everything
// else as not found.
type staticGeocoder map[string]domain.Coordinates

func (g staticGeocoder) Geocode(_ context.Context, query string) (domain.GeocodingResult, error) {
	c, ok := g[query]
	if !ok {
		return domain.NotFound, nil
	}
	return domain.GeocodingResult{Coordinates: c, Found: true}, nil
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("geocoder-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestRunPublishesReport runs a reconciliation against a real SQLite store
// and checks the report that lands on the Kafka topic.
func TestRunPublishesReport(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	logger := observability.DiscardLogger()
	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "members.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for _, row := range [][]string{
		{"Name", domain.ColumnLocation, domain.ColumnLatitude, domain.ColumnLongitude},
		{"ana", "Paris, France", "", ""},
		{"bo", "", "", ""},
		{"cy", "Berlin, Germany", "52.5", "13.4"},
	} {
		_, err := store.AppendRow(ctx, row)
		require.NoError(t, err)
	}

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaReportTopic: testReportTopic}
	publisher := kafka.NewPublisher(cfg, logger)
	t.Cleanup(func() { _ = publisher.Close() })

	geo := staticGeocoder{"Paris, France": {Lat: 48.8566, Lon: 2.3522}}
	svc := reconcile.NewService(store, geo, reconcile.NewGuard(""), clockwork.NewRealClock(),
		reconcile.Settings{Provider: "static", RetryWindow: 12 * time.Hour},
		publisher, observability.NewMetricsForTesting(), logger)

	report, err := svc.Run(ctx, reconcile.RunOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, reconcile.RunCompleted, report.Status)
	assert.Equal(t, 1, report.Counters.OK)

	grid, err := store.ReadAll(ctx)
	require.NoError(t, err)
	header, rows := domain.ParseRows(grid)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.StatusOK, rows[0].Status)
	assert.Equal(t, "48.8566000", rows[0].Latitude)
	_, ok := header.Index(domain.ColumnGeocodedAt)
	assert.True(t, ok)

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testReportTopic,
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = reader.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := reader.ReadMessage(readCtx)
	require.NoError(t, err, "read report from topic")

	assert.Equal(t, report.RunID, string(msg.Key))
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "completed", headers["status"])

	var got reconcile.RunReport
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, report.Counters, got.Counters)
}
