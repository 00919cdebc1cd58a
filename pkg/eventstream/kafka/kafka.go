// Package kafka publishes haven events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/haven/pkg/eventstream"
)

const (
	// DefaultTopic receives every haven event.
	DefaultTopic = "haven.events"

	defaultWriteTimeout = 10 * time.Second
)

// Config is the configuration for a Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single publish. Defaults to 10s.
	WriteTimeout time.Duration
}

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes events as JSON messages. Turn events are keyed by session
// ID and drift events by user ID, so each keeps its order within a partition.
type Publisher struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher returns a Publisher writing to c.Topic on c.Brokers.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, c, logger), nil
}

func newPublisher(w messageWriter, c Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return &Publisher{
		writer:  w,
		topic:   c.Topic,
		timeout: c.WriteTimeout,
		logger:  logger,
	}
}

// PublishTurn implements eventstream.Publisher.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}
	return p.publish(ctx, event.SessionID, event.EventType, event.EventID, event)
}

// PublishDrift implements eventstream.Publisher.
func (p *Publisher) PublishDrift(ctx context.Context, event *eventstream.DriftAnalyzedEvent) error {
	if event == nil {
		return eventstream.ErrNilDriftEvent
	}
	return p.publish(ctx, event.UserID, event.EventType, event.EventID, event)
}

func (p *Publisher) publish(ctx context.Context, key, eventType, eventID string, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "event_id", Value: []byte(eventID)},
		},
	})
	if err != nil {
		return fmt.Errorf("writing %s event to %s: %w", eventType, p.topic, err)
	}

	p.logger.Debug("event published", "topic", p.topic, "event_type", eventType, "event_id", eventID)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
