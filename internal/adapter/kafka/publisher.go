// Package kafka publishes per-file processing outcomes so downstream
// consumers can track which station-years produced weather files and which
// were rejected, without scraping logs or output directories.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/amy-epw-gen/internal/config"
	"github.com/couchcryptid/amy-epw-gen/internal/domain"
)

// Publisher produces outcome events to a Kafka topic.
// It implements pipeline.OutcomePublisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured outcome topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaOutcomeTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes and publishes a batch of outcomes in a single
// WriteMessages call for efficiency.
func (p *Publisher) Publish(ctx context.Context, outcomes []domain.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(outcomes))
	for i := range outcomes {
		msg, err := serializeToMessage(outcomes[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an Outcome into a Kafka message keyed by
// station-year so a compacted topic keeps the latest outcome per file.
func serializeToMessage(outcome domain.Outcome) (kafkago.Message, error) {
	data, err := json.Marshal(outcome)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize outcome: %w", err)
	}
	status := "accepted"
	if !outcome.Accepted {
		status = "rejected"
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("%s-%d", outcome.StationID, outcome.Year)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "status", Value: []byte(status)},
			{Key: "processed_at", Value: []byte(outcome.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
