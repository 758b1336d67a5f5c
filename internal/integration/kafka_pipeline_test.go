//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/wind-repower-usa/internal/adapter/kafka"
	"github.com/couchcryptid/wind-repower-usa/internal/config"
	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/couchcryptid/wind-repower-usa/internal/observability"
	"github.com/couchcryptid/wind-repower-usa/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

// publishedEvent holds a deserialized message read from the run event topic.
type publishedEvent struct {
	Event   domain.RunEvent
	Key     string
	Headers map[string]string
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("repower-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	brokers, err := container.Brokers(ctx)
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

func newConsumer(t *testing.T, broker, topic string) *kafkago.Reader {
	t.Helper()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = r.Close() })
	return r
}

// readEvent reads a single message from the consumer and deserializes it.
func readEvent(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedEvent {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read run event")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var event domain.RunEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event), "unmarshal run event")

	return publishedEvent{Event: event, Key: string(msg.Key), Headers: headers}
}

type exitStatus int

func (e exitStatus) Error() string { return "exit status " + strconv.Itoa(int(e)) }
func (e exitStatus) ExitCode() int { return int(e) }

// TestWriterPublishesRunEvent verifies that kafka.Writer round-trips a run
// event through Kafka with its key and headers.
func TestWriterPublishesRunEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	topic := "test-run-events"
	createTopic(t, broker, topic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: topic}
	writer := kafka.NewWriter(cfg, observability.DiscardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	at := time.Date(2019, time.January, 7, 12, 0, 0, 0, time.UTC)
	sent := domain.RunEvent{
		RunID:           "run-1",
		Target:          "download_turbines",
		Status:          domain.RunSucceeded,
		DurationSeconds: 1.5,
		At:              at,
	}
	require.NoError(t, writer.Publish(ctx, sent))

	got := readEvent(ctx, t, newConsumer(t, broker, topic))
	assert.Equal(t, "run-1", got.Key)
	assert.Equal(t, "download_turbines", got.Headers["target"])
	assert.Equal(t, string(domain.RunSucceeded), got.Headers["status"])
	assert.Equal(t, sent.Target, got.Event.Target)
	assert.Equal(t, sent.Status, got.Event.Status)
	assert.InDelta(t, 1.5, got.Event.DurationSeconds, 1e-9)
	assert.True(t, at.Equal(got.Event.At))
}

// TestRunnerPublishesTargetLifecycle runs a failing plan and checks the
// started and finished events of every executed target.
func TestRunnerPublishesTargetLifecycle(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	topic := "test-run-lifecycle"
	createTopic(t, broker, topic)

	cfg := &config.Config{KafkaBrokers: []string{broker}, KafkaTopic: topic}
	writer := kafka.NewWriter(cfg, observability.DiscardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	reg := pipeline.NewRegistry()
	reg.Add(pipeline.Target{Name: "calc_min_distances", Run: func(context.Context) error { return nil }})
	reg.Add(pipeline.Target{Name: "unit_test", Run: func(context.Context) error { return exitStatus(3) }})
	reg.Add(pipeline.Target{Name: "lint", Run: func(context.Context) error { return nil }})

	runner := pipeline.New(reg, writer, observability.DiscardLogger(), observability.NewMetricsForTesting(), nil)
	err := runner.Run(ctx, "calc_min_distances", "unit_test", "lint")
	require.Error(t, err)
	assert.Equal(t, 3, pipeline.ExitCode(err))
	var status exitStatus
	require.True(t, errors.As(err, &status))

	consumer := newConsumer(t, broker, topic)
	want := []struct {
		target string
		status domain.RunStatus
	}{
		{"calc_min_distances", domain.RunStarted},
		{"calc_min_distances", domain.RunSucceeded},
		{"unit_test", domain.RunStarted},
		{"unit_test", domain.RunFailed},
	}
	var runID string
	for i, w := range want {
		got := readEvent(ctx, t, consumer)
		assert.Equal(t, w.target, got.Event.Target, "event %d", i)
		assert.Equal(t, w.status, got.Event.Status, "event %d", i)
		if i == 0 {
			runID = got.Event.RunID
			require.NotEmpty(t, runID)
		}
		assert.Equal(t, runID, got.Key, "event %d shares the run id", i)
		if w.status == domain.RunFailed {
			assert.Equal(t, 3, got.Event.ExitCode)
		}
	}

	assert.Error(t, runner.CheckReadiness(ctx), "a failed run is not ready")
}
