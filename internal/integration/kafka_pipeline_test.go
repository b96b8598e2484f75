//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/ctessum/geom"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/flood-exposure/internal/adapter/kafka"
	"github.com/couchcryptid/flood-exposure/internal/config"
	"github.com/couchcryptid/flood-exposure/internal/domain"
	"github.com/couchcryptid/flood-exposure/internal/observability"
	"github.com/couchcryptid/flood-exposure/internal/pipeline"
)

const (
	testSourceTopic = "test-scenarios"
	testSinkTopic   = "test-reports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	kc, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("flood-exposure-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(kc) })

	brokers, err := kc.Brokers(ctx)
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
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// rampAnalyzer is a 10x10 grid of 1 m cells whose elevation equals the row
// index, with one road crossing it north to south.
func rampAnalyzer(t *testing.T) *domain.Analyzer {
	t.Helper()
	values := make([]float64, 100)
	for r := range 10 {
		for c := range 10 {
			values[r*10+c] = float64(r)
		}
	}
	crs := domain.MustParseCRS("EPSG:32633")
	grid, err := domain.NewElevationGrid(10, 10, values, domain.NewNorthUpTransform(500000, 4100010, 1, 1), crs, nil)
	require.NoError(t, err)

	roads := &domain.RoadLayer{Name: "roads", CRS: crs, Features: []domain.RoadFeature{{
		Category: "primary",
		Geometry: geom.LineString{{X: 500004.5, Y: 4100010}, {X: 500004.5, Y: 4100000}},
	}}}
	a, err := domain.NewAnalyzer(grid, domain.Layers{Roads: roads}, domain.NewVectorizer(), domain.AnalyzerConfig{}, discardLogger())
	require.NoError(t, err)
	return a
}

type reportMessage struct {
	Report  domain.ExposureReport
	Key     string
	Headers map[string]string
}

func readReport(ctx context.Context, t *testing.T, consumer *kafkago.Reader) reportMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rep domain.ExposureReport
	require.NoError(t, json.Unmarshal(msg.Value, &rep), "unmarshal sink message")
	return reportMessage{Report: rep, Key: string(msg.Key), Headers: headers}
}

func newConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 2 * time.Second,
	}
}

func newSinkConsumer(t *testing.T, broker string) *kafkago.Reader {
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })
	return consumer
}

// TestPipelineEndToEnd runs Reader -> ScenarioTransformer -> Writer against a
// real broker.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := newConfig(broker, "test-pipeline")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bathtub-4"), Value: []byte(`{"level_above_river_m":4.5}`)},
		kafkago.Message{Value: []byte(`{"id":"hand-4","method":"hand","level_above_river_m":4.5,"hand_max_drainage_distance_m":0}`)},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	transformer := pipeline.NewTransformer(rampAnalyzer(t), domain.DefaultScenarioDefaults(), discardLogger(), metrics)
	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newSinkConsumer(t, broker)
	got := map[string]reportMessage{}
	for len(got) < 2 {
		rm := readReport(ctx, t, consumer)
		got[rm.Key] = rm
	}

	pipelineCancel()
	require.NoError(t, <-errCh)

	bt, ok := got["bathtub-4"]
	require.True(t, ok, "bathtub report keyed by message key")
	assert.Equal(t, domain.MethodBathtub, bt.Report.Method)
	assert.Equal(t, "bathtub", bt.Headers["method"])
	_, err := time.Parse(time.RFC3339, bt.Headers["generated_at"])
	assert.NoError(t, err, "generated_at should be valid RFC3339")
	assert.Positive(t, bt.Report.FloodedCells)
	require.NotNil(t, bt.Report.Roads)
	assert.Positive(t, bt.Report.Roads.ByCategoryKM["primary"])

	hand, ok := got["hand-4"]
	require.True(t, ok)
	assert.Equal(t, domain.MethodHAND, hand.Report.Method)
	assert.Positive(t, hand.Report.FloodedCells)
}

// TestPipelineSkipsInvalidScenario verifies a malformed request is skipped
// and later requests are still analyzed.
func TestPipelineSkipsInvalidScenario(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)
	cfg := newConfig(broker, "test-poison")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("no-level"), Value: []byte(`{"method":"hand"}`)},
		kafkago.Message{Key: []byte("good"), Value: []byte(`{"level_above_river_m":2}`)},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	metrics := observability.NewMetricsForTesting()
	transformer := pipeline.NewTransformer(rampAnalyzer(t), domain.DefaultScenarioDefaults(), discardLogger(), metrics)
	p := pipeline.New(reader, transformer, writer, discardLogger(), metrics, 10)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newSinkConsumer(t, broker)
	rm := readReport(ctx, t, consumer)
	assert.Equal(t, "good", rm.Key)

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no second message on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)
}
