package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/entity"
)

// Mailer delivers one notification synchronously.
type Mailer interface {
	Deliver(ctx context.Context, n entity.Notification) error
}

// Consumer is the part of *amqp.Channel the worker needs.
type Consumer interface {
	ConsumeWithContext(ctx context.Context, queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel Consumer
	Mailer  Mailer
	Logger  *zap.Logger
}

func NewWorker(ch Consumer, mailer Mailer, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{Channel: ch, Mailer: mailer, Logger: logger}
}

// Start consumes queueName until ctx is cancelled or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.ConsumeWithContext(ctx, queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	w.Logger.Info("notification worker consuming", zap.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks delivered messages. Malformed and undeliverable messages are
// nacked without requeue so they land in the DLQ.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var n entity.Notification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		w.Logger.Error("malformed notification message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := w.Mailer.Deliver(ctx, n); err != nil {
		w.Logger.Error("notification delivery failed",
			zap.String("kind", string(n.Kind)),
			zap.String("lead_id", n.LeadID),
			zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
