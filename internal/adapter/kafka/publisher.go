package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher produces each saved snapshot to a Kafka topic so downstream
// consumers can follow the corpus without reading the snapshot store.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the snapshot topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish writes one message keyed by the snapshot's timestamp label.
func (p *Publisher) Publish(ctx context.Context, snap domain.Snapshot) error {
	msg, err := serializeToMessage(snap)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", snap.Key(), err)
	}
	p.logger.Debug("snapshot published", "key", snap.Key(), "topic", p.writer.Topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage encodes a snapshot with the same mention JSON the
// snapshot store persists.
func serializeToMessage(snap domain.Snapshot) (kafkago.Message, error) {
	data, err := domain.EncodeMentions(snap.Mentions)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snap.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "taken_at", Value: []byte(snap.TakenAt.UTC().Format(time.RFC3339))},
			{Key: "places", Value: []byte(strconv.Itoa(len(snap.Mentions)))},
		},
	}, nil
}
