package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer delivers booking notifications at least once: an offset is
// committed only after the handler accepted its message.
type Consumer struct {
	reader  messageReader
	retries int
	backoff time.Duration
}

type ConsumerOption func(*Consumer)

// WithHandlerRetries retries a failing handler up to retries times, backoff
// apart, before the consumer stops on that message.
func WithHandlerRetries(retries int, backoff time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.retries = retries
		c.backoff = backoff
	}
}

func NewConsumer(brokers []string, groupID, topic string, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			StartOffset:       kafka.FirstOffset,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume hands messages to handler one at a time. A message the handler
// keeps rejecting stops the loop with its offset uncommitted, so the group
// redelivers it after a restart.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			return err
		}

		if err := c.handle(ctx, handler, msg); err != nil {
			return fmt.Errorf("handle %s[%d]@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit %s[%d]@%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, handler func(context.Context, kafka.Message) error, msg kafka.Message) error {
	for attempt := 0; ; attempt++ {
		err := handler(ctx, msg)
		if err == nil || attempt >= c.retries {
			return err
		}
		log.Printf("handle offset %d failed (attempt %d): %v", msg.Offset, attempt+1, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
	}
}

// BookingEvents adapts handle to raw messages. Undecodable messages are logged and skipped.
func BookingEvents(handle func(context.Context, BookingEvent) error) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		var event BookingEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("decode booking event at offset %d: %v", msg.Offset, err)
			return nil
		}
		return handle(ctx, event)
	}
}
