package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/salespilot/internal/entity"
)

// Publisher is the part of *amqp.Channel the producer needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Producer queues notifications on RabbitMQ for the Worker to deliver.
type Producer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *Producer {
	return &Producer{Ch: ch}
}

func (p *Producer) Notify(ctx context.Context, n entity.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         string(n.Kind),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to RabbitMQ: %w", err)
	}
	return nil
}
