// Package store persists payment records for the length of their execution
// window. Entries expire on their own; the service never deletes them.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/types"
	"github.com/vitwit/paygate/verification"
)

// KeyPrefix namespaces payment records.
const KeyPrefix = "payment:"

// ErrNotFound is returned for records that were never written or have expired.
var ErrNotFound = errors.New("payment record not found")

// Key returns the store key of a payment.
func Key(paymentID string) string {
	return KeyPrefix + paymentID
}

// PaymentID strips KeyPrefix from key.
func PaymentID(key string) string {
	return strings.TrimPrefix(key, KeyPrefix)
}

// Entry is one live key and its record.
type Entry struct {
	Key    string
	Record *types.PaymentRecord
}

// Store is a TTL-bounded key-value store of payment records.
type Store interface {
	// Put overwrites the record and sets its expiration to now+ttl.
	Put(ctx context.Context, record *types.PaymentRecord, ttl time.Duration) error

	// Get returns ErrNotFound when the record is absent or expired, and an
	// InvalidRecordError when the stored entry does not validate.
	Get(ctx context.Context, paymentID string) (*types.PaymentRecord, error)

	// ListByPrefix returns live entries whose key starts with prefix, in no
	// particular order. Malformed entries are skipped.
	ListByPrefix(ctx context.Context, prefix string) ([]Entry, error)

	// CompareAndSwapStatus atomically moves a live record from one status to
	// another and stamps ExecutedAt. It fails with PaymentNotPendingError when
	// the current status differs or the record is gone.
	CompareAndSwapStatus(ctx context.Context, paymentID string, from, to types.PaymentStatus, at time.Time) (*types.PaymentRecord, error)
}

// Option configures a store backend.
type Option func(*options)

type options struct {
	logger logger.Logger
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		logger: logger.NoopLogger{},
		now:    time.Now,
	}
}

// WithLogger sets the logger used to report skipped entries.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock overrides the clock used for expiration.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func checkRecord(record *types.PaymentRecord, ttl time.Duration) error {
	if record == nil || record.PaymentID == "" {
		return types.NewError(types.ErrStoreError, "record without payment id", nil)
	}
	if ttl <= 0 {
		return types.NewError(types.ErrStoreError, "ttl must be positive", nil)
	}
	return nil
}

func readBack(record *types.PaymentRecord) (*types.PaymentRecord, error) {
	if err := verification.ValidateRecord(record); err != nil {
		return nil, err
	}
	return record, nil
}

func notPending(paymentID string, from types.PaymentStatus) error {
	return types.NewError(types.ErrPaymentNotPending, "payment "+paymentID+" is no longer "+string(from), nil)
}

func cloneRecord(r *types.PaymentRecord) *types.PaymentRecord {
	c := *r
	if r.ExecutedAt != nil {
		at := *r.ExecutedAt
		c.ExecutedAt = &at
	}
	return &c
}
