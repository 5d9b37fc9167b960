// Package config loads the gateway settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/vitwit/paygate/store"
	"github.com/vitwit/paygate/types"
	"github.com/vitwit/paygate/utils"
)

// Store backends
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

type Config struct {
	Network          string `envconfig:"NETWORK" default:"fuji" validate:"required"`
	RPCUrl           string `envconfig:"RPC_URL" required:"true" validate:"required,url"`
	GatewayContract  string `envconfig:"GATEWAY_CONTRACT" required:"true" validate:"required,eth_addr"`
	MulticallAddress string `envconfig:"MULTICALL_ADDRESS" default:"0xcA11bde05977b3631167028862bE2a173976CA11" validate:"eth_addr"`
	ExecutionMode    string `envconfig:"EXECUTION_MODE" default:"transfer" validate:"oneof=transfer gateway"`
	FillGasParams    bool   `envconfig:"FILL_GAS_PARAMS" default:"false"`
	ChainID          int64  `envconfig:"CHAIN_ID" default:"0" validate:"gte=0"`

	PaymentTTL           time.Duration `envconfig:"PAYMENT_TTL" default:"30m" validate:"gt=0"`
	EnforcePendingStatus bool          `envconfig:"ENFORCE_PENDING_STATUS" default:"true"`
	RequestTimeout       time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`

	StoreBackend      string `envconfig:"STORE_BACKEND" default:"memory" validate:"oneof=memory dynamodb"`
	DynamoTable       string `envconfig:"DYNAMODB_TABLE" default:"paygate-payments"`
	DynamoRegion      string `envconfig:"AWS_REGION" default:"us-east-1"`
	DynamoEndpoint    string `envconfig:"DYNAMODB_ENDPOINT" validate:"omitempty,url"`
	AWSAccessKeyID    string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey      string `envconfig:"AWS_SECRET_ACCESS_KEY"`
	DynamoEnsureTable bool   `envconfig:"DYNAMODB_ENSURE_TABLE" default:"false"`

	Port             int     `envconfig:"PORT" default:"3000" validate:"gt=0"`
	BodyLimit        string  `envconfig:"BODY_LIMIT" default:"64K"`
	DefaultRateLimit float64 `envconfig:"DEFAULT_RATE_LIMIT" default:"10" validate:"gt=0"`
	BurstRateLimit   int     `envconfig:"BURST_RATE_LIMIT" default:"20" validate:"gt=0"`

	LogLevel               string  `envconfig:"LOG_LEVEL" default:"info"`
	EnablePrometheus       bool    `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort         int     `envconfig:"PROMETHEUS_PORT" default:"9092"`
	SentryDSN              string  `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`

	RabbitMQUri      string `envconfig:"RABBITMQ_URI"`
	RabbitMQExchange string `envconfig:"RABBITMQ_PAYMENT_EXCHANGE" default:"paygate.payments"`

	Intent IntentConfig
}

type IntentConfig struct {
	Variant         string   `envconfig:"INTENT_VARIANT" default:"payments" validate:"oneof=payments deposit"`
	URL             string   `envconfig:"INTENT_URL" default:"https://sherry.social" validate:"url"`
	Icon            string   `envconfig:"INTENT_ICON" default:"https://avatars.githubusercontent.com/u/117962315" validate:"url"`
	Title           string   `envconfig:"INTENT_TITLE" default:"Pagos Sherry"`
	Description     string   `envconfig:"INTENT_DESCRIPTION"`
	Path            string   `envconfig:"INTENT_PATH" default:"/api/gateway" validate:"startswith=/"`
	SupportedTokens TokenMap `envconfig:"SUPPORTED_TOKENS"`
	DepositMerchant string   `envconfig:"DEPOSIT_MERCHANT" validate:"omitempty,eth_addr"`
}

// TokenMap is decoded from "SYM=0xaddr;SYM2=0xaddr". envconfig's own map
// decoder splits on colons.
type TokenMap map[string]string

func (tm *TokenMap) Decode(value string) error {
	m := map[string]string{}
	for _, pair := range strings.Split(value, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		kv := strings.Split(pair, "=")
		if len(kv) != 2 {
			return fmt.Errorf("invalid token map item: %q", pair)
		}
		symbol, address := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		if symbol == "" || !common.IsHexAddress(address) {
			return fmt.Errorf("invalid token map item: %q", pair)
		}
		m[symbol] = utils.NormalizeAddress(address)
	}
	*tm = m
	return nil
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, types.NewError(types.ErrConfigError, "failed to load config", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks field formats and cross-field rules.
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		return types.NewError(types.ErrConfigError, "invalid config", err)
	}

	network := types.Network(c.Network)
	if !network.IsSupported() && c.ChainID == 0 {
		return types.NewError(types.ErrConfigError,
			fmt.Sprintf("unknown network %q requires CHAIN_ID", c.Network), nil)
	}

	if c.Intent.Variant == string(types.IntentVariantDeposit) {
		if c.Intent.DepositMerchant == "" {
			return types.NewError(types.ErrConfigError, "deposit variant requires DEPOSIT_MERCHANT", nil)
		}
		if len(c.Intent.SupportedTokens) == 0 {
			return types.NewError(types.ErrConfigError, "deposit variant requires SUPPORTED_TOKENS", nil)
		}
	}
	return nil
}

// GatewayConfig converts the environment settings into the gateway config.
func (c *Config) GatewayConfig() *types.GatewayConfig {
	return &types.GatewayConfig{
		Chain: types.ChainConfig{
			Network:          types.Network(c.Network),
			RPCUrl:           c.RPCUrl,
			GatewayContract:  c.GatewayContract,
			MulticallAddress: c.MulticallAddress,
			Mode:             types.ExecutionMode(c.ExecutionMode),
			FillGasParams:    c.FillGasParams,
			ChainID:          c.ChainID,
		},
		Payments: types.PaymentConfig{
			TTL:                  c.PaymentTTL,
			EnforcePendingStatus: c.EnforcePendingStatus,
		},
		Intent: types.IntentConfig{
			Variant:         types.IntentVariant(c.Intent.Variant),
			URL:             c.Intent.URL,
			Icon:            c.Intent.Icon,
			Title:           c.Intent.Title,
			Description:     c.Intent.Description,
			Path:            c.Intent.Path,
			SupportedTokens: c.Intent.SupportedTokens,
			DepositMerchant: c.Intent.DepositMerchant,
		},
		DefaultTimeout: c.RequestTimeout,
		LogLevel:       c.LogLevel,
		EnableMetrics:  c.EnablePrometheus,
	}
}

// DynamoConfig returns the DynamoDB connection settings.
func (c *Config) DynamoConfig() store.DynamoConfig {
	return store.DynamoConfig{
		Region:          c.DynamoRegion,
		Endpoint:        c.DynamoEndpoint,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretKey,
		TableName:       c.DynamoTable,
	}
}
