// internal/queue/rabbitmq.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/annolab/annolab/internal/config"
	"github.com/annolab/annolab/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ carries the two asynchronous channels of the engine: the
// notifications queue consumed by the dispatcher, and the events queue for
// lifecycle status messages consumed by downstream systems.
type RabbitMQ struct {
	conn                *amqp.Connection
	notificationChannel *amqp.Channel
	eventChannel        *amqp.Channel
	config              config.RabbitMQConfig
}

func NewRabbitMQ(cfg config.RabbitMQConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	notifCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open notification channel: %w", err)
	}

	eventCh, err := conn.Channel()
	if err != nil {
		notifCh.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to open event channel: %w", err)
	}

	rmq := &RabbitMQ{
		conn:                conn,
		notificationChannel: notifCh,
		eventChannel:        eventCh,
		config:              cfg,
	}

	if err := rmq.setupQueues(); err != nil {
		rmq.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return rmq, nil
}

func (r *RabbitMQ) setupQueues() error {
	// Setup notifications queue
	err := r.notificationChannel.ExchangeDeclare(
		r.config.Exchange,     // name
		r.config.ExchangeType, // type
		true,                  // durable
		false,                 // auto-deleted
		false,                 // internal
		false,                 // no-wait
		nil,                   // arguments
	)
	if err != nil {
		return err
	}

	_, err = r.notificationChannel.QueueDeclare(
		r.config.NotificationsQueue, // name
		true,                        // durable
		false,                       // delete when unused
		false,                       // exclusive
		false,                       // no-wait
		nil,                         // arguments
	)
	if err != nil {
		return err
	}

	err = r.notificationChannel.QueueBind(
		r.config.NotificationsQueue, // queue name
		"notifications",             // routing key
		r.config.Exchange,           // exchange
		false,
		nil,
	)
	if err != nil {
		return err
	}

	// Setup events queue with message TTL
	args := make(amqp.Table)
	args["x-message-ttl"] = 72 * 60 * 60 * 1000 // 72 hours in milliseconds

	_, err = r.eventChannel.QueueDeclare(
		r.config.EventsQueue, // name
		true,                 // durable
		false,                // delete when unused
		false,                // exclusive
		false,                // no-wait
		args,                 // arguments - including TTL
	)
	return err
}

func (r *RabbitMQ) PublishNotification(ctx context.Context, req *models.NotificationRequest) error {
	data, err := req.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal notification request: %w", err)
	}

	return r.notificationChannel.PublishWithContext(ctx,
		r.config.Exchange, // exchange
		"notifications",   // routing key
		false,             // mandatory
		false,             // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp.Persistent,
		},
	)
}

func (r *RabbitMQ) ConsumeNotifications(ctx context.Context) (<-chan amqp.Delivery, error) {
	return r.notificationChannel.Consume(
		r.config.NotificationsQueue, // queue
		"",                          // consumer
		false,                       // auto-ack
		false,                       // exclusive
		false,                       // no-local
		false,                       // no-wait
		nil,                         // args
	)
}

func (r *RabbitMQ) PublishEvent(ctx context.Context, msg *models.StatusMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return r.eventChannel.PublishWithContext(ctx,
		"",                   // exchange
		r.config.EventsQueue, // routing key
		false,                // mandatory
		false,                // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         data,
			DeliveryMode: amqp.Persistent,
		},
	)
}

func (r *RabbitMQ) Close() error {
	if err := r.notificationChannel.Close(); err != nil {
		return err
	}
	if err := r.eventChannel.Close(); err != nil {
		return err
	}
	return r.conn.Close()
}
