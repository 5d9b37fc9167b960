package types

import (
	"encoding/json"
	"time"
)

// PaymentStatus represents the lifecycle state of a payment record
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
)

// ExecutionMode selects the multicall recipe used to fulfil a payment
type ExecutionMode string

const (
	// ExecutionModeTransfer transfers the token straight to the merchant and
	// then notifies the gateway contract.
	ExecutionModeTransfer ExecutionMode = "transfer"

	// ExecutionModeGateway registers the payment on the gateway contract,
	// approves it when the allowance is short, and lets the gateway pull funds.
	ExecutionModeGateway ExecutionMode = "gateway"
)

// PaymentRecord is the ephemeral off-chain payment kept in the store.
type PaymentRecord struct {
	// Keccak256 identifier, 0x-prefixed. Also used as bytes32 on-chain.
	PaymentID string `json:"paymentId" validate:"required,len=66,hexadecimal"`

	// Account receiving the funds.
	Merchant string `json:"merchant" validate:"required,eth_addr"`

	// ERC-20 token contract.
	Token string `json:"token" validate:"required,eth_addr"`

	// Amount in the token's smallest unit, as a decimal string because Go
	// has no native uint256.
	Amount string `json:"amount" validate:"required,number"`

	// Canonical metadata string, hashed before going on-chain.
	Metadata string `json:"metadata"`

	// Account expected to pay. Optional until execution.
	PayerAddress string `json:"payerAddress,omitempty" validate:"omitempty,eth_addr"`

	Status PaymentStatus `json:"status" validate:"required,oneof=pending completed"`

	CreatedAt  time.Time  `json:"createdAt" validate:"required"`
	ExpiresAt  time.Time  `json:"expiresAt" validate:"required,gtfield=CreatedAt"`
	ExecutedAt *time.Time `json:"executedAt,omitempty"`
}

// IsExpired reports whether the record is past its execution window.
func (r *PaymentRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Remaining returns how long the record stays live, never negative.
func (r *PaymentRecord) Remaining(now time.Time) time.Duration {
	d := r.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Details converts the record into the input of the transaction builder.
func (r *PaymentRecord) Details(payer string) *PaymentDetails {
	return &PaymentDetails{
		PaymentID:    r.PaymentID,
		Merchant:     r.Merchant,
		Token:        r.Token,
		Amount:       r.Amount,
		Metadata:     r.Metadata,
		PayerAddress: payer,
	}
}

// CreatePaymentRequest is the caller input for a new payment.
type CreatePaymentRequest struct {
	MerchantAddress string          `json:"merchantAddress"`
	TokenAddress    string          `json:"tokenAddress"`
	Amount          string          `json:"amount"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	PayerAddress    string          `json:"payerAddress,omitempty"`
}

// CreatedPayment is the reduced view returned after creation. Merchant and
// metadata are deliberately not echoed back.
type CreatedPayment struct {
	PaymentID string    `json:"paymentId"`
	Amount    string    `json:"amount"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ExecutePaymentRequest identifies the record to execute and optionally the payer.
type ExecutePaymentRequest struct {
	PaymentID    string `json:"paymentId"`
	PayerAddress string `json:"payerAddress,omitempty"`
}

// PaymentDetails is everything the chain adapter needs to build the batch.
type PaymentDetails struct {
	PaymentID    string
	Merchant     string
	Token        string
	Amount       string
	Metadata     string
	PayerAddress string
}

// Call3 mirrors the Multicall3 Call3 tuple.
type Call3 struct {
	Target       string `json:"target"`
	AllowFailure bool   `json:"allowFailure"`
	CallData     string `json:"callData"`
}

// ExecutionTransaction is the unsigned batched transaction handed to the payer.
type ExecutionTransaction struct {
	// 0x-prefixed RLP of the unsigned EIP-155 legacy transaction.
	Serialized string  `json:"serializedTransaction"`
	To         string  `json:"to"`
	Data       string  `json:"data"`
	ChainID    string  `json:"chainId"`
	Calls      []Call3 `json:"calls"`
}

// ExecutionResult is returned to the caller of an execution.
type ExecutionResult struct {
	SerializedTransaction string `json:"serializedTransaction"`
	ChainID               string `json:"chainId"`
}

// TokenInfo contains information about the payment token
type TokenInfo struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// BalanceCheck is the outcome of comparing a balance with a required amount.
type BalanceCheck struct {
	HasBalance bool   `json:"hasBalance"`
	Balance    string `json:"balance"`
	Required   string `json:"required"`

	// Human readable values, present when token decimals could be read.
	FormattedBalance  string `json:"formattedBalance,omitempty"`
	FormattedRequired string `json:"formattedRequired,omitempty"`
	Symbol            string `json:"symbol,omitempty"`
}

// ChainConfig contains configuration for the EVM chain adapter
type ChainConfig struct {
	Network          Network       `json:"network" validate:"required"`
	RPCUrl           string        `json:"rpcUrl" validate:"required,url"`
	GatewayContract  string        `json:"gatewayContract" validate:"required,eth_addr"`
	MulticallAddress string        `json:"multicallAddress" validate:"omitempty,eth_addr"`
	Mode             ExecutionMode `json:"mode" validate:"omitempty,oneof=transfer gateway"`
	FillGasParams    bool          `json:"fillGasParams,omitempty"`

	// Overrides the chain id of Network, for custom or local chains.
	ChainID int64 `json:"chainId,omitempty"`
}

// PaymentConfig controls the lifecycle service.
type PaymentConfig struct {
	TTL                  time.Duration `json:"ttl,omitempty"`
	EnforcePendingStatus bool          `json:"enforcePendingStatus"`
}

// IntentVariant selects which descriptor the intent responder renders.
type IntentVariant string

const (
	IntentVariantPayments IntentVariant = "payments"
	IntentVariantDeposit  IntentVariant = "deposit"
)

// IntentConfig holds the presentation data of the descriptor.
type IntentConfig struct {
	Variant         IntentVariant     `json:"variant,omitempty"`
	URL             string            `json:"url,omitempty"`
	Icon            string            `json:"icon,omitempty"`
	Title           string            `json:"title,omitempty"`
	Description     string            `json:"description,omitempty"`
	Path            string            `json:"path,omitempty"`
	SupportedTokens map[string]string `json:"supportedTokens,omitempty"`
	DepositMerchant string            `json:"depositMerchant,omitempty"`
}

// GatewayConfig contains global configuration for the gateway
type GatewayConfig struct {
	Chain          ChainConfig   `json:"chain"`
	Payments       PaymentConfig `json:"payments"`
	Intent         IntentConfig  `json:"intent"`
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty"`
	LogLevel       string        `json:"logLevel,omitempty"`
	EnableMetrics  bool          `json:"enableMetrics,omitempty"`
}

// DefaultPaymentTTL is the execution window of a payment record.
const DefaultPaymentTTL = 30 * time.Minute

// DefaultMulticallAddress is the canonical Multicall3 deployment.
const DefaultMulticallAddress = "0xcA11bde05977b3631167028862bE2a173976CA11"
