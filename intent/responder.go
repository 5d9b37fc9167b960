package intent

import (
	"context"
	"sort"
	"time"

	"github.com/vitwit/paygate/logger"
	"github.com/vitwit/paygate/metrics"
	"github.com/vitwit/paygate/types"
)

// Defaults used when IntentConfig leaves a field empty.
const (
	DefaultURL         = "https://sherry.social"
	DefaultIcon        = "https://avatars.githubusercontent.com/u/117962315"
	DefaultTitle       = "Pagos Sherry"
	DefaultDescription = "Permite realizar pagos a comercios y servicios"
	DefaultPath        = "/api/gateway"

	PaymentParam = "pago"
	TokenParam   = "tokenAddress"
	AmountParam  = "amount"
)

// Lister returns the payments that can currently be executed.
type Lister interface {
	ListPayments(ctx context.Context) ([]*types.PaymentRecord, error)
}

// Responder builds the descriptor for the configured variant.
type Responder struct {
	payments Lister
	network  types.Network
	cfg      types.IntentConfig
	logger   logger.Logger
	metrics  metrics.Recorder
}

type ResponderOption func(*Responder)

func WithLogger(l logger.Logger) ResponderOption {
	return func(r *Responder) { r.logger = l }
}

func WithMetrics(m metrics.Recorder) ResponderOption {
	return func(r *Responder) { r.metrics = m }
}

func NewResponder(payments Lister, network types.Network, cfg types.IntentConfig, opts ...ResponderOption) *Responder {
	if cfg.Variant == "" {
		cfg.Variant = types.IntentVariantPayments
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Icon == "" {
		cfg.Icon = DefaultIcon
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.Description == "" {
		cfg.Description = DefaultDescription
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	r := &Responder{
		payments: payments,
		network:  network,
		cfg:      cfg,
		logger:   logger.NoopLogger{},
		metrics:  metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Variant returns the descriptor variant being served.
func (r *Responder) Variant() types.IntentVariant {
	return r.cfg.Variant
}

// DepositMerchant is the merchant deposits are credited to.
func (r *Responder) DepositMerchant() string {
	return r.cfg.DepositMerchant
}

// Describe renders and validates the descriptor. baseURL is the public
// origin the request came in on.
func (r *Responder) Describe(ctx context.Context, baseURL string) (*Descriptor, error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveLatency(metrics.OpDescribe, time.Since(start), map[string]string{"network": r.network.String()})
	}()

	var (
		action Action
		err    error
	)
	switch r.cfg.Variant {
	case types.IntentVariantDeposit:
		action = r.depositAction()
	default:
		action, err = r.paymentsAction(ctx)
		if err != nil {
			return nil, err
		}
	}

	d := &Descriptor{
		URL:         r.cfg.URL,
		Icon:        r.cfg.Icon,
		Title:       r.cfg.Title,
		Description: r.cfg.Description,
		BaseURL:     baseURL,
		Actions:     []Action{action},
	}

	if err := Validate(d); err != nil {
		r.logger.Error("descriptor failed validation", map[string]any{"error": err})
		return nil, err
	}
	return d, nil
}

func (r *Responder) paymentsAction(ctx context.Context) (Action, error) {
	records, err := r.payments.ListPayments(ctx)
	if err != nil {
		return Action{}, err
	}

	options := make([]Option, 0, len(records))
	for _, rec := range records {
		options = append(options, Option{
			Label: rec.Merchant + " " + rec.Amount,
			Value: rec.PaymentID,
		})
	}

	r.logger.Debug("listed pending payments", map[string]any{"count": len(options)})

	return Action{
		Type:        ActionDynamic,
		Label:       "Pagos Pendientes",
		Description: "muestra los pagos pendientes.",
		Chains:      Chains{Source: r.network.String()},
		Path:        r.cfg.Path,
		Params: []Param{{
			Name:     PaymentParam,
			Label:    "seleccione el pago",
			Type:     ParamSelect,
			Required: true,
			Options:  options,
		}},
	}, nil
}

func (r *Responder) depositAction() Action {
	symbols := make([]string, 0, len(r.cfg.SupportedTokens))
	for sym := range r.cfg.SupportedTokens {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	options := make([]Option, 0, len(symbols))
	for _, sym := range symbols {
		options = append(options, Option{Label: sym, Value: r.cfg.SupportedTokens[sym]})
	}

	return Action{
		Type:        ActionDynamic,
		Label:       "Depositar",
		Description: "deposita tokens al comercio.",
		Chains:      Chains{Source: r.network.String()},
		Path:        r.cfg.Path,
		Params: []Param{
			{
				Name:     TokenParam,
				Label:    "token",
				Type:     ParamSelect,
				Required: true,
				Options:  options,
			},
			{
				Name:        AmountParam,
				Label:       "monto",
				Type:        ParamText,
				Required:    true,
				Description: "monto en la unidad minima del token",
			},
		},
	}
}
