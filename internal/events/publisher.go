// internal/events/publisher.go

// Package events publishes copyright decision events to Kafka for
// downstream consumers (moderation dashboards, analytics). Publishing
// is best-effort: a broker outage never fails the originating request.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/soundbridge/backend/internal/config"
)

// DecisionEvent is emitted whenever a protection record is created or
// its status changes.
type DecisionEvent struct {
	TrackID         string    `json:"track_id"`
	CreatorID       string    `json:"creator_id"`
	Status          string    `json:"status"`
	CheckType       string    `json:"check_type"`
	ConfidenceScore float64   `json:"confidence_score"`
	Recommendation  string    `json:"recommendation,omitempty"`
	FingerprintHash string    `json:"fingerprint_hash,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher returns a publisher backed by the configured brokers, or
// a no-op publisher when Kafka is disabled.
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	if !cfg.Enabled {
		return &Publisher{}
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.DecisionTopic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// PublishDecision writes the event keyed by track ID so per-track
// ordering is preserved. Errors are logged, not returned.
func (p *Publisher) PublishDecision(ctx context.Context, event DecisionEvent) {
	if p == nil || p.writer == nil {
		return
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal decision event")
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(event.TrackID),
		Value: payload,
	})
	if err != nil {
		logrus.WithError(err).WithField("track_id", event.TrackID).
			Error("Failed to publish decision event")
	}
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
