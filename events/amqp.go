package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "paygate.payments"

	defaultHeartbeat = 10 * time.Second
	defaultLocale    = "en_US"
)

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var _ Publisher = (*AMQPPublisher)(nil)

// AMQPPublisher sends events to a durable topic exchange, keyed by event type.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       Channel
	exchange string
}

// DialAMQP connects to uri and declares exchange. Failed dials are retried
// with exponential backoff for up to maxWait.
func DialAMQP(uri, exchange string, maxWait time.Duration) (*AMQPPublisher, error) {
	if _, err := amqp.ParseURI(uri); err != nil {
		return nil, fmt.Errorf("amqp uri: %w", err)
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if maxWait > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.MaxInterval = 10 * time.Second
		exp.MaxElapsedTime = maxWait
		policy = exp
	}

	var conn *amqp.Connection
	err := backoff.Retry(func() error {
		var err error
		conn, err = amqp.DialConfig(uri, amqp.Config{
			Heartbeat: defaultHeartbeat,
			Locale:    defaultLocale,
			Dial:      amqp.DefaultDial(3 * time.Second),
		})
		return err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	p, err := NewAMQPPublisher(ch, exchange)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewAMQPPublisher declares exchange on ch.
func NewAMQPPublisher(ch Channel, exchange string) (*AMQPPublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}

	err := ch.ExchangeDeclare(
		exchange,
		// topic, so consumers can bind to payment.*
		"topic",
		// durable
		true,
		// auto-deleted
		false,
		// internal
		false,
		// no-wait
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("amqp exchange declare %s: %w", exchange, err)
	}

	return &AMQPPublisher{ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.ch.PublishWithContext(ctx,
		p.exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
			Body:         body,
		},
	)
}

func (p *AMQPPublisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
