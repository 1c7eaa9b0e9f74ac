package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const (
	workerPrefetch   = 10
	workerMaxBackoff = 30 * time.Second
)

// Worker drains the mail queue and sends each message through sender.
type Worker struct {
	url    string
	queue  string
	sender Mailer
}

func NewWorker(url, queue string, sender Mailer) *Worker {
	return &Worker{url: url, queue: queue, sender: sender}
}

// Run reconnects with exponential backoff until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := w.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}

		logrus.WithError(err).WithField("retry_in", backoff.String()).Warn("Mail worker disconnected")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < workerMaxBackoff {
			backoff *= 2
		}
	}
}

func (w *Worker) consume(ctx context.Context) error {
	conn, err := amqp.Dial(w.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err = ch.Qos(workerPrefetch, 0, false); err != nil {
		return fmt.Errorf("amqp qos: %w", err)
	}
	if err = declareQueue(ch, w.queue); err != nil {
		return err
	}

	deliveries, err := ch.Consume(w.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	logrus.WithField("queue", w.queue).Info("Mail worker consuming")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			w.Handle(ctx, d)
		}
	}
}

// Handle acks a sent message, drops a malformed one and requeues one whose
// send failed.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) {
	var msg RecoveryMail
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.To == "" || msg.Code == "" {
		logrus.WithError(err).Error("Dropping malformed mail message")
		_ = d.Nack(false, false)
		return
	}

	if err := w.sender.SendRecoveryCode(ctx, msg.To, msg.Code); err != nil {
		logrus.WithError(err).WithField("to", msg.To).Error("Failed to send queued recovery code")
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
}
