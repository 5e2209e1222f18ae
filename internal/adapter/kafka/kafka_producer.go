package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/aq2208/gorder-pos/internal/usecase"
)

// Publisher implements usecase.EventPublisher on a sync producer. Outbox
// channels are mapped to topics; an unmapped channel is published to a
// topic of the same name.
type Publisher struct {
	producer sarama.SyncProducer
	topics   map[string]string
}

func NewPublisher(producer sarama.SyncProducer, topics map[string]string) *Publisher {
	return &Publisher{producer: producer, topics: topics}
}

func (p *Publisher) topic(channel string) string {
	if t, ok := p.topics[channel]; ok && t != "" {
		return t
	}
	return channel
}

const headerChannel = "channel"

func (p *Publisher) Publish(ctx context.Context, channel, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic(channel),
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerChannel), Value: []byte(channel)},
			{Key: []byte("content-type"), Value: []byte("application/json")},
		},
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("kafka send %s: %w", msg.Topic, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.producer.Close() }

var _ usecase.EventPublisher = (*Publisher)(nil)
