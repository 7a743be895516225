package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.notifications"
	QueueName    = "q.notifications"
	DLQName      = "q.notifications.dlq"
	DLXName      = "ex.notifications.dlx"
	RoutingKey   = "k.notification"
)

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

// setupTopology declares the work queue and its dead letter queue. Nacked
// messages are routed to the DLX without requeue.
func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(DLQName, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(DLQName, RoutingKey, DLXName, false, nil); err != nil {
		return err
	}

	args := amqp.Table{
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": RoutingKey,
	}
	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, args); err != nil {
		return err
	}
	return ch.QueueBind(QueueName, RoutingKey, ExchangeName, false, nil)
}

// Ping reports whether the connection is still open.
func (r *RabbitMQ) Ping() error {
	if r == nil || r.Conn == nil || r.Conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.Ch != nil {
		r.Ch.Close()
	}
	return r.Conn.Close()
}
