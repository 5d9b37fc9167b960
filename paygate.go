// Package paygate creates ephemeral ERC-20 payment requests and turns them
// into unsigned Multicall3 transactions the payer signs and broadcasts.
package paygate

import (
	"context"
	"time"

	"github.com/vitwit/paygate/clients"
	"github.com/vitwit/paygate/events"
	"github.com/vitwit/paygate/intent"
	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/metrics"
	"github.com/vitwit/paygate/settlement"
	"github.com/vitwit/paygate/store"
	"github.com/vitwit/paygate/types"
	"github.com/vitwit/paygate/utils"
)

// Gateway is the main struct that wires the chain client, the payment store
// and the lifecycle services together.
type Gateway struct {
	config *types.GatewayConfig

	client    clients.ChainClient
	store     store.Store
	publisher events.Publisher
	logger    logger.Logger
	metrics   metrics.Recorder
	timeout   time.Duration
	now       func() time.Time

	payments *settlement.PaymentService
	intent   *intent.Responder
}

// New creates a Gateway. Unless a chain client is supplied with
// WithChainClient, one is dialled from config.Chain.
func New(config *types.GatewayConfig, opts ...Option) (*Gateway, error) {
	if config == nil {
		return nil, types.NewError(types.ErrConfigError, "missing gateway config", nil)
	}

	g := &Gateway{
		config:    config,
		publisher: events.NoopPublisher{},
		logger:    logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
		timeout:   30 * time.Second,
		now:       time.Now,
	}
	if config.DefaultTimeout > 0 {
		g.timeout = config.DefaultTimeout
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.client == nil {
		if err := utils.ValidateStruct(config.Chain); err != nil {
			return nil, types.NewError(types.ErrConfigError, "invalid chain config", err)
		}
		client, err := clients.NewEVMClient(config.Chain)
		if err != nil {
			return nil, err
		}
		g.client = client
	}

	if g.store == nil {
		g.store = store.NewMemoryStore(store.WithLogger(g.logger), store.WithClock(g.now))
	}

	g.payments = settlement.NewPaymentService(g.client, g.store, config.Payments,
		settlement.WithLogger(g.logger),
		settlement.WithMetrics(g.metrics),
		settlement.WithPublisher(g.publisher),
		settlement.WithClock(g.now),
		settlement.WithTimeout(g.timeout),
	)
	g.intent = intent.NewResponder(g.payments, g.client.GetNetwork(), config.Intent,
		intent.WithLogger(g.logger),
		intent.WithMetrics(g.metrics),
	)

	g.logger.Info("gateway initialised", map[string]any{
		"network":        g.client.GetNetwork().String(),
		"chainId":        g.client.ChainID().String(),
		"enforcePending": config.Payments.EnforcePendingStatus,
		"variant":        g.intent.Variant(),
	})
	return g, nil
}

// NewWithDefaults creates a Gateway for Avalanche Fuji in transfer mode with
// the pending guard enabled.
func NewWithDefaults(rpcURL, gatewayContract string, opts ...Option) (*Gateway, error) {
	return New(&types.GatewayConfig{
		Chain: types.ChainConfig{
			Network:         types.NetworkFuji,
			RPCUrl:          rpcURL,
			GatewayContract: gatewayContract,
			Mode:            types.ExecutionModeTransfer,
		},
		Payments: types.PaymentConfig{
			TTL:                  types.DefaultPaymentTTL,
			EnforcePendingStatus: true,
		},
		DefaultTimeout: 30 * time.Second,
		LogLevel:       "info",
	}, opts...)
}

// CreatePayment stores a new pending payment.
func (g *Gateway) CreatePayment(ctx context.Context, req *types.CreatePaymentRequest) (*types.CreatedPayment, error) {
	return g.payments.CreatePayment(ctx, req)
}

// ExecutePayment returns the unsigned transaction that settles a payment.
func (g *Gateway) ExecutePayment(ctx context.Context, req *types.ExecutePaymentRequest) (*types.ExecutionResult, error) {
	return g.payments.ExecutePayment(ctx, req)
}

func (g *Gateway) GetPayment(ctx context.Context, paymentID string) (*types.PaymentRecord, error) {
	return g.payments.GetPayment(ctx, paymentID)
}

func (g *Gateway) ListPayments(ctx context.Context) ([]*types.PaymentRecord, error) {
	return g.payments.ListPayments(ctx)
}

func (g *Gateway) CheckBalance(ctx context.Context, user, token, amount string) (*types.BalanceCheck, error) {
	return g.payments.CheckBalance(ctx, user, token, amount)
}

// Describe renders the action descriptor served to wallets.
func (g *Gateway) Describe(ctx context.Context, baseURL string) (*intent.Descriptor, error) {
	return g.intent.Describe(ctx, baseURL)
}

// IntentVariant returns the descriptor variant in use.
func (g *Gateway) IntentVariant() types.IntentVariant {
	return g.intent.Variant()
}

// DepositMerchant is the merchant deposits are credited to.
func (g *Gateway) DepositMerchant() string {
	return g.intent.DepositMerchant()
}

// Network returns the network the gateway builds transactions for.
func (g *Gateway) Network() types.Network {
	return g.client.GetNetwork()
}

// Close releases the chain connection and the event publisher.
func (g *Gateway) Close() {
	g.client.Close()
	if err := g.publisher.Close(); err != nil {
		g.logger.Warn("failed to close event publisher", map[string]any{"error": err})
	}
}

// Version information
const Version = "1.0.0"

// GetVersion returns version information
func GetVersion() map[string]interface{} {
	networks := make([]string, 0, len(types.SupportedNetworks()))
	for _, n := range types.SupportedNetworks() {
		networks = append(networks, n.String())
	}
	return map[string]interface{}{
		"version":            Version,
		"supported_networks": networks,
		"execution_modes": []string{
			string(types.ExecutionModeTransfer), string(types.ExecutionModeGateway),
		},
	}
}
