package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrPublishNacked = errors.New("broker did not confirm the message")

// Publisher puts one message body on the mail queue and returns once the
// broker has confirmed it.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// QueueMailer hands recovery codes to the mail worker through RabbitMQ.
type QueueMailer struct {
	publisher Publisher
	now       func() time.Time
}

func NewQueueMailer(publisher Publisher) *QueueMailer {
	return &QueueMailer{publisher: publisher, now: time.Now}
}

func (m *QueueMailer) SendRecoveryCode(ctx context.Context, to, code string) error {
	body, err := json.Marshal(RecoveryMail{
		To:          to,
		Code:        code,
		RequestedAt: m.now().UTC(),
	})
	if err != nil {
		return err
	}
	return m.publisher.Publish(ctx, body)
}

// AMQPPublisher keeps one confirm-mode channel open for the process.
type AMQPPublisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func DialPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}

	if err = declareQueue(ch, queue); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &AMQPPublisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	confirmation, err := p.ch.PublishWithDeferredConfirmWithContext(ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("amqp confirm: %w", err)
	}
	if !acked {
		return ErrPublishNacked
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	_ = p.ch.Close()
	return p.conn.Close()
}

func declareQueue(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s: %w", queue, err)
	}
	return nil
}
