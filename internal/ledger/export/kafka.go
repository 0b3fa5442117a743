// Package export publishes committed audit entries to Kafka for downstream
// compliance tooling. Export is strictly best-effort and happens after the
// entry is durably committed: the ledger itself is the system of record,
// Kafka is a copy. A failed publish is logged and never fails the
// transition that produced the entry.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"docgov/internal/ledger"
	dErrors "docgov/pkg/domain-errors"
)

// KafkaExporter streams committed ledger entries to a single topic, keyed
// by document id so one document's entries land on one partition in order.
type KafkaExporter struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// Option configures the KafkaExporter.
type Option func(*KafkaExporter)

// WithLogger sets a logger for publish failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *KafkaExporter) {
		e.logger = logger
	}
}

// NewKafka connects a producer to the given brokers.
func NewKafka(brokers []string, topic string, opts ...Option) (*KafkaExporter, error) {
	if len(brokers) == 0 {
		return nil, dErrors.New(dErrors.CodeInternal, "kafka brokers are required")
	}
	if topic == "" {
		return nil, dErrors.New(dErrors.CodeInternal, "kafka topic is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create kafka client")
	}

	exporter := &KafkaExporter{
		client: client,
		topic:  topic,
	}
	for _, opt := range opts {
		opt(exporter)
	}
	return exporter, nil
}

// EnsureTopic creates the export topic if it does not exist yet. Called
// once at startup; an already-existing topic is not an error.
func (e *KafkaExporter) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(e.client)
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, e.topic)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "create export topic")
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return dErrors.Wrap(resp.Err, dErrors.CodeInternal, "create export topic")
	}
	return nil
}

// Export publishes one committed entry asynchronously. Failures are logged;
// the entry is already durable in the ledger and a resync can replay it.
func (e *KafkaExporter) Export(ctx context.Context, entry ledger.Entry) {
	value, err := json.Marshal(entry)
	if err != nil {
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "audit export marshal failed",
				"entry_id", entry.ID,
				"error", err,
			)
		}
		return
	}

	record := &kgo.Record{
		Topic: e.topic,
		Key:   []byte(entry.DocumentID.String()),
		Value: value,
	}
	e.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil && e.logger != nil {
			e.logger.ErrorContext(ctx, "audit export publish failed",
				"entry_id", entry.ID,
				"document_id", entry.DocumentID,
				"seq", entry.Seq,
				"error", err,
			)
		}
	})
}

// Close flushes buffered records and releases the client.
func (e *KafkaExporter) Close(ctx context.Context) error {
	if err := e.client.Flush(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "flush kafka producer")
	}
	e.client.Close()
	return nil
}
