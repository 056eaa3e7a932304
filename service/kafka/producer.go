package kafka

import (
	"context"
	"encoding/json"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
)

// MsgIDHeader carries the message id for consumer side dedupe.
const MsgIDHeader = "msg-id"

// Keyer lets an event choose its partition key.
type Keyer interface {
	PartitionKey() string
}

// Producer publishes JSON events to one topic through a sync producer.
type Producer struct {
	sp    sarama.SyncProducer
	topic string
}

// NewProducer dials the brokers.
func NewProducer(c Config) (*Producer, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka brokers missing")
	}
	if c.Topic == "" {
		return nil, errors.New("kafka topic missing")
	}
	sp, err := sarama.NewSyncProducer(c.Brokers, BuildBaseConfig(c))
	if err != nil {
		return nil, errors.Wrap(err, "kafka producer")
	}
	return NewProducerFrom(sp, c.Topic), nil
}

// NewProducerFrom wraps an existing producer; tests pass sarama mocks here.
func NewProducerFrom(sp sarama.SyncProducer, topic string) *Producer {
	return &Producer{sp: sp, topic: topic}
}

func (p *Producer) Topic() string { return p.topic }

// Publish JSON-encodes v. The key is v.PartitionKey() when available, else msgID.
func (p *Producer) Publish(ctx context.Context, v any, msgID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	key := msgID
	if k, ok := v.(Keyer); ok && k.PartitionKey() != "" {
		key = k.PartitionKey()
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	if msgID != "" {
		msg.Headers = []sarama.RecordHeader{{Key: []byte(MsgIDHeader), Value: []byte(msgID)}}
	}
	_, _, err = p.sp.SendMessage(msg)
	return err
}

func (p *Producer) Close() error {
	return p.sp.Close()
}
