package place

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/ssherwood/placeservice/internal/config"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event describes one successful mutation. Place is nil for deletions. PreviousName is
// set when an update renamed the place; Name is always the current name.
type Event struct {
	ID           uuid.UUID `json:"id"`
	Type         EventType `json:"type"`
	Name         string    `json:"name"`
	PreviousName string    `json:"previous_name,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
	Place        *Place    `json:"place,omitempty"`
}

func NewEvent(typ EventType, name string, p *Place) Event {
	return Event{ID: uuid.New(), Type: typ, Name: name, OccurredAt: time.Now().UTC(), Place: p}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events keyed by place name, so every event for one place lands
// on the same partition.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           config.KafkaWriteTimeout,
		AllowAutoTopicCreation: true,
	})
}

func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (kp *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal place event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.Name),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}
	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish place event: %w", err)
	}

	slog.Debug("Published place event", slog.String("event.type", string(e.Type)), slog.String("place.name", e.Name))
	return nil
}

func (kp *KafkaPublisher) Close() error {
	return kp.writer.Close()
}

// LogPublisher only logs events. Used when no brokers are configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	slog.Info("Place changed", slog.String("event.type", string(e.Type)), slog.String("place.name", e.Name))
	return nil
}

func (LogPublisher) Close() error { return nil }
