// Package pubsub publishes integration events to a RabbitMQ topic exchange
// so that systems outside this application (CRM sync, BI, human escalation
// queues) can react to lead routing outcomes.
// This is part of the platform layer and contains no business logic.
package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"leaddesk_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Publisher delivers a JSON payload to the exchange under a routing key.
type Publisher interface {
	Publish(ctx context.Context, key string, payload interface{}) error
	Close() error
}

type rmqPublisher struct {
	conn     *amqp091.Connection
	exchange string
	log      *logger.Logger
}

// New connects to RabbitMQ and declares a durable topic exchange.
func New(url, exchange string, log *logger.Logger) (Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	return &rmqPublisher{
		conn:     conn,
		exchange: exchange,
		log:      log,
	}, nil
}

func (r *rmqPublisher) Publish(ctx context.Context, key string, payload interface{}) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, r.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err == nil && r.log != nil {
		r.log.Debug("integration event published", "key", key, "exchange", r.exchange)
	}
	return err
}

func (r *rmqPublisher) Close() error {
	return r.conn.Close()
}
