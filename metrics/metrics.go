package metrics

import "time"

// Event and operation names reported by the gateway.
const (
	EventPaymentCreated  = "payment_created"
	EventPaymentExecuted = "payment_executed"
	EventPaymentRejected = "payment_rejected"
	EventPublishFailed   = "event_publish_failed"

	OpCreatePayment  = "create_payment"
	OpExecutePayment = "execute_payment"
	OpCheckBalance   = "check_balance"
	OpDescribe       = "describe"
)

type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
