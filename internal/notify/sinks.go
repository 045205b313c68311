package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"event-ticketing/internal/config"
	"event-ticketing/internal/logger"
	"event-ticketing/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ---------------- KAFKA ----------------

type JSONPublisher interface {
	PublishJSON(ctx context.Context, topic, key string, v interface{}) error
}

// KafkaSink streams every order event to the domain-event topic, keyed by
// order so one order's events stay in one partition.
type KafkaSink struct {
	Producer JSONPublisher
	Topic    string
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, event models.OrderEvent) error {
	return s.Producer.PublishJSON(ctx, s.Topic, event.OrderID, event)
}

// ---------------- RABBITMQ ----------------

// AMQPPublisher is the publishing half of *amqp.Channel.
type AMQPPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink turns order events into buyer notifications and organizer audit
// entries on two durable queues.
type AMQPSink struct {
	Channel AMQPPublisher
	Queues  map[string]string // notification channel -> queue name

	mu   sync.Mutex
	conn *amqp.Connection
}

// DialAMQP connects, opens a channel and declares both queues.
func DialAMQP(cfg config.RabbitMQConfig, log *logger.Logger) (*AMQPSink, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}

	queues := map[string]string{
		models.ChannelBuyer:          cfg.BuyerQueue,
		models.ChannelOrganizerAudit: cfg.OrganizerAuditQueue,
	}
	for _, name := range queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("rabbitmq declare %s: %w", name, err)
		}
	}
	log.LogProcess("RABBITMQ", fmt.Sprintf("Declared queues %s, %s", cfg.BuyerQueue, cfg.OrganizerAuditQueue))
	return &AMQPSink{Channel: ch, Queues: queues, conn: conn}, nil
}

func (s *AMQPSink) Name() string { return "rabbitmq" }

func (s *AMQPSink) Send(ctx context.Context, event models.OrderEvent) error {
	for _, n := range NotificationsFor(event) {
		queue, ok := s.Queues[n.Channel]
		if !ok {
			continue
		}
		body, err := json.Marshal(n)
		if err != nil {
			return err
		}
		s.mu.Lock()
		err = s.Channel.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			MessageId:    fmt.Sprintf("%s:%s:%s", n.OrderID, n.Kind, n.Channel),
			Body:         body,
		})
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("publish to %s: %w", queue, err)
		}
	}
	return nil
}

func (s *AMQPSink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
