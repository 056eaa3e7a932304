package natsx

import (
	"context"
	"encoding/json"
	"fmt"
)

// MsgIDHeader carries the event id so consumers can drop duplicates.
const MsgIDHeader = "Nats-Msg-Id"

// NatsxProducer publishes JSON events to one subject.
type NatsxProducer struct {
	c       *NatsxClient
	subject string
}

func NewNatsxProducer(c *NatsxClient, subject string) *NatsxProducer {
	return &NatsxProducer{c: c, subject: subject}
}

func (p *NatsxProducer) Subject() string { return p.subject }

// Publish encodes v as JSON and sends it with msgID in the header.
func (p *NatsxProducer) Publish(ctx context.Context, v any, msgID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	var hdr map[string]string
	if msgID != "" {
		hdr = map[string]string{MsgIDHeader: msgID}
	}
	if err := p.c.publish(p.subject, data, hdr); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}
