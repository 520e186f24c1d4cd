package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/Astemirdum/library-circulation/pkg/circuit_breaker"
)

type Publisher interface {
	Publish(ctx context.Context, event model.CirculationEvent) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.CirculationEvent) error { return nil }

// KafkaPublisher writes events keyed by book id, so events of one book keep
// their order within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	cb       circuit_breaker.CircuitBreaker
}

// NewKafkaPublisher guards the producer with a breaker that opens when half of
// the last 20 sends failed. opts tune the breaker.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string, opts ...circuit_breaker.Option) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		cb:       circuit_breaker.New(20, 30*time.Second, 0.5, 5, opts...),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event model.CirculationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.BookID),
		Value:     sarama.ByteEncoder(data),
		Timestamp: event.OccurredAt,
	}
	return p.cb.Call(ctx, func(context.Context) error {
		_, _, err := p.producer.SendMessage(msg)
		return err
	})
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
