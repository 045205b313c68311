package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// HandlerFunc processes one message. Returning an error wrapped with
// Permanent skips the retries.
type HandlerFunc func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	reader      MessageReader
	topic       string
	log         *logger.Logger
	maxAttempts uint64
}

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return NewConsumerWithReader(reader, topic, log)
}

func NewConsumerWithReader(reader MessageReader, topic string, log *logger.Logger) *Consumer {
	return &Consumer{reader: reader, topic: topic, log: log, maxAttempts: 5}
}

// Permanent marks a handler error as not worth retrying, e.g. a malformed payload.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Run fetches and handles messages until ctx is cancelled. Each message is
// retried with backoff and committed afterwards, successful or not, so one
// poison message cannot stall the partition.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	c.log.LogKafka("CONSUME", c.topic, "consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.log.LogKafka("CONSUME", c.topic, "consumer stopped")
				return nil
			}
			c.log.Error("KAFKA", fmt.Sprintf("Error reading from %s: %v", c.topic, err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		policy := backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxAttempts-1), ctx)
		if err := backoff.Retry(func() error { return handle(ctx, msg) }, policy); err != nil {
			c.log.Error("KAFKA", fmt.Sprintf("Dropping message %s/%d@%d key=%s: %v",
				msg.Topic, msg.Partition, msg.Offset, string(msg.Key), err))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Error("KAFKA", fmt.Sprintf("Failed to commit offset on %s: %v", c.topic, err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
