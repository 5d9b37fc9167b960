package settlement

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/vitwit/paygate/clients"
	"github.com/vitwit/paygate/events"
	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/metrics"
	"github.com/vitwit/paygate/store"
	"github.com/vitwit/paygate/types"
	"github.com/vitwit/paygate/utils"
	"github.com/vitwit/paygate/verification"
)

// Service defines the payment lifecycle operations
type Service interface {
	CreatePayment(ctx context.Context, req *types.CreatePaymentRequest) (*types.CreatedPayment, error)
	ExecutePayment(ctx context.Context, req *types.ExecutePaymentRequest) (*types.ExecutionResult, error)
	GetPayment(ctx context.Context, paymentID string) (*types.PaymentRecord, error)
	ListPayments(ctx context.Context) ([]*types.PaymentRecord, error)
	CheckBalance(ctx context.Context, user, token, amount string) (*types.BalanceCheck, error)
}

var _ Service = (*PaymentService)(nil)

// PaymentService creates pending payments and turns them into unsigned
// multicall transactions.
type PaymentService struct {
	client    clients.ChainClient
	store     store.Store
	publisher events.Publisher
	logger    logger.Logger
	metrics   metrics.Recorder
	now       func() time.Time

	ttl            time.Duration
	enforcePending bool
	timeout        time.Duration
}

// Option configures a PaymentService.
type Option func(*PaymentService)

func WithLogger(l logger.Logger) Option {
	return func(s *PaymentService) { s.logger = l }
}

func WithMetrics(m metrics.Recorder) Option {
	return func(s *PaymentService) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *PaymentService) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) { s.now = now }
}

// WithTimeout bounds every operation. Zero leaves the caller's deadline alone.
func WithTimeout(d time.Duration) Option {
	return func(s *PaymentService) { s.timeout = d }
}

// NewPaymentService creates a new payment service
func NewPaymentService(client clients.ChainClient, st store.Store, cfg types.PaymentConfig, opts ...Option) *PaymentService {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = types.DefaultPaymentTTL
	}

	s := &PaymentService{
		client:         client,
		store:          st,
		publisher:      events.NoopPublisher{},
		logger:         logger.NoopLogger{},
		metrics:        metrics.NoopRecorder{},
		now:            time.Now,
		ttl:            ttl,
		enforcePending: cfg.EnforcePendingStatus,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreatePayment validates the request, confirms the token contract and
// stores a pending record for the configured TTL.
func (s *PaymentService) CreatePayment(ctx context.Context, req *types.CreatePaymentRequest) (*types.CreatedPayment, error) {
	start := time.Now()
	defer s.observe(metrics.OpCreatePayment, start)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	params, err := verification.ValidateCreateRequest(req)
	if err != nil {
		return nil, s.reject(err)
	}

	metadata, err := utils.CanonicalMetadata(req.Metadata)
	if err != nil {
		return nil, s.reject(types.NewError(types.ErrMetadataValidation, "invalid metadata", err))
	}

	// Only confirms the address is an ERC-20 contract.
	if _, err := s.client.GetTokenInfo(ctx, params.Token); err != nil {
		return nil, s.reject(err)
	}

	createdAt := s.now().UTC()
	amount := params.Amount.String()

	record := &types.PaymentRecord{
		PaymentID:    utils.DerivePaymentID(params.Merchant, params.Token, amount, createdAt, uuid.NewString()),
		Merchant:     params.Merchant,
		Token:        params.Token,
		Amount:       amount,
		Metadata:     metadata,
		PayerAddress: params.Payer,
		Status:       types.PaymentStatusPending,
		CreatedAt:    createdAt,
		ExpiresAt:    createdAt.Add(s.ttl),
	}

	if err := s.store.Put(ctx, record, s.ttl); err != nil {
		return nil, s.reject(storeError("failed to save payment", err))
	}

	s.logger.Info("payment created", map[string]any{
		"paymentId": record.PaymentID,
		"merchant":  record.Merchant,
		"token":     record.Token,
		"amount":    record.Amount,
		"expiresAt": record.ExpiresAt,
	})
	s.metrics.IncCounter(metrics.EventPaymentCreated, s.labels(""))
	s.publish(ctx, events.PaymentCreated, record, record.PayerAddress, createdAt)

	return &types.CreatedPayment{
		PaymentID: record.PaymentID,
		Amount:    record.Amount,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// ExecutePayment builds the unsigned transaction for a live payment. With
// the pending guard enabled the record is atomically marked completed, so a
// payment can be executed once.
func (s *PaymentService) ExecutePayment(ctx context.Context, req *types.ExecutePaymentRequest) (*types.ExecutionResult, error) {
	start := time.Now()
	defer s.observe(metrics.OpExecutePayment, start)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	record, err := s.getRecord(ctx, req.PaymentID)
	if err != nil {
		return nil, s.reject(err)
	}

	now := s.now().UTC()
	payer, err := verification.ValidateExecution(record, now, s.enforcePending, req.PayerAddress)
	if err != nil {
		return nil, s.reject(err)
	}

	tx, err := s.client.BuildExecutionTransaction(ctx, record.Details(payer))
	if err != nil {
		return nil, s.reject(err)
	}

	if s.enforcePending {
		if _, err := s.store.CompareAndSwapStatus(ctx, record.PaymentID, types.PaymentStatusPending, types.PaymentStatusCompleted, now); err != nil {
			return nil, s.reject(storeError("failed to complete payment", err))
		}
	} else {
		// Written back as is, keeping what is left of its TTL.
		if err := s.store.Put(ctx, record, record.Remaining(now)); err != nil {
			return nil, s.reject(storeError("failed to save payment", err))
		}
	}

	s.logger.Info("payment executed", map[string]any{
		"paymentId": record.PaymentID,
		"payer":     payer,
		"calls":     len(tx.Calls),
	})
	s.metrics.IncCounter(metrics.EventPaymentExecuted, s.labels(""))
	s.publish(ctx, events.PaymentExecuted, record, payer, now)

	return &types.ExecutionResult{
		SerializedTransaction: tx.Serialized,
		ChainID:               s.client.GetNetwork().DisplayName(),
	}, nil
}

// GetPayment returns the live record for paymentID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*types.PaymentRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.getRecord(ctx, paymentID)
}

// ListPayments returns the records that can still be executed, oldest first.
func (s *PaymentService) ListPayments(ctx context.Context) ([]*types.PaymentRecord, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	entries, err := s.store.ListByPrefix(ctx, store.KeyPrefix)
	if err != nil {
		return nil, storeError("failed to list payments", err)
	}

	now := s.now()
	out := make([]*types.PaymentRecord, 0, len(entries))
	for _, e := range entries {
		if e.Record.IsExpired(now) {
			continue
		}
		if s.enforcePending && e.Record.Status != types.PaymentStatusPending {
			continue
		}
		out = append(out, e.Record)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].PaymentID < out[j].PaymentID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// CheckBalance reports whether user holds at least amount of token.
func (s *PaymentService) CheckBalance(ctx context.Context, user, token, amount string) (*types.BalanceCheck, error) {
	start := time.Now()
	defer s.observe(metrics.OpCheckBalance, start)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.client.CheckUserBalance(ctx, user, token, amount)
}

func (s *PaymentService) getRecord(ctx context.Context, paymentID string) (*types.PaymentRecord, error) {
	record, err := s.store.Get(ctx, paymentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, types.NewError(types.ErrPaymentNotFound, "payment "+paymentID+" not found or expired", nil)
	}
	if err != nil {
		return nil, storeError("failed to load payment", err)
	}
	return record, nil
}

func (s *PaymentService) publish(ctx context.Context, kind string, record *types.PaymentRecord, payer string, at time.Time) {
	err := s.publisher.Publish(ctx, events.Event{
		Type:       kind,
		PaymentID:  record.PaymentID,
		Merchant:   record.Merchant,
		Token:      record.Token,
		Amount:     record.Amount,
		Payer:      payer,
		Network:    s.client.GetNetwork().String(),
		OccurredAt: at,
	})
	if err != nil {
		s.logger.Error("failed to publish payment event", map[string]any{
			"type":      kind,
			"paymentId": record.PaymentID,
			"error":     err,
		})
		s.metrics.IncCounter(metrics.EventPublishFailed, s.labels(""))
	}
}

func (s *PaymentService) reject(err error) error {
	s.metrics.IncCounter(metrics.EventPaymentRejected, s.labels(types.Code(err)))
	if types.IsClientError(err) {
		s.logger.Debug("payment request rejected", map[string]any{"error": err})
	} else {
		s.logger.Error("payment operation failed", map[string]any{"error": err})
	}
	return err
}

func (s *PaymentService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *PaymentService) observe(op string, start time.Time) {
	s.metrics.ObserveLatency(op, time.Since(start), s.labels(""))
}

func (s *PaymentService) labels(code string) map[string]string {
	return map[string]string{
		"network": s.client.GetNetwork().String(),
		"code":    code,
	}
}

// storeError keeps typed errors and wraps anything else as a store failure.
func storeError(msg string, err error) error {
	if types.Code(err) != "" {
		return err
	}
	return types.NewError(types.ErrStoreError, msg, err)
}
