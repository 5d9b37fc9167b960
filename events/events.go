// Package events publishes payment lifecycle notifications.
package events

import (
	"context"
	"time"
)

// Routing keys
const (
	PaymentCreated  = "payment.created"
	PaymentExecuted = "payment.executed"
)

// Event is the JSON body published for a lifecycle transition.
type Event struct {
	Type       string    `json:"type"`
	PaymentID  string    `json:"paymentId"`
	Merchant   string    `json:"merchant,omitempty"`
	Token      string    `json:"token,omitempty"`
	Amount     string    `json:"amount"`
	Payer      string    `json:"payer,omitempty"`
	Network    string    `json:"network"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }
