package types

import "errors"

// Error codes
const (
	ErrInvalidAddress     = "INVALID_ADDRESS"
	ErrInvalidAmount      = "INVALID_AMOUNT"
	ErrInvalidToken       = "INVALID_TOKEN"
	ErrPaymentNotFound    = "PAYMENT_NOT_FOUND"
	ErrPaymentExpired     = "PAYMENT_EXPIRED"
	ErrPaymentNotPending  = "PAYMENT_NOT_PENDING"
	ErrMetadataValidation = "METADATA_VALIDATION"
	ErrChainCall          = "CHAIN_CALL"
	ErrInvalidRecord      = "INVALID_RECORD"
	ErrStoreError         = "STORE_ERROR"
	ErrConfigError        = "CONFIG_ERROR"
)

// GatewayError represents an error raised by the gateway
type GatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// Is matches any GatewayError carrying the same code, so callers can compare
// against the sentinels below with errors.Is.
func (e *GatewayError) Is(target error) bool {
	t, ok := target.(*GatewayError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError builds a GatewayError.
func NewError(code, message string, cause error) *GatewayError {
	return &GatewayError{Code: code, Message: message, Cause: cause}
}

var (
	InvalidAddressError     = &GatewayError{Code: ErrInvalidAddress, Message: "invalid address"}
	InvalidAmountError      = &GatewayError{Code: ErrInvalidAmount, Message: "invalid amount"}
	InvalidTokenError       = &GatewayError{Code: ErrInvalidToken, Message: "invalid token"}
	PaymentNotFoundError    = &GatewayError{Code: ErrPaymentNotFound, Message: "payment not found"}
	PaymentExpiredError     = &GatewayError{Code: ErrPaymentExpired, Message: "payment expired"}
	PaymentNotPendingError  = &GatewayError{Code: ErrPaymentNotPending, Message: "payment is not pending"}
	MetadataValidationError = &GatewayError{Code: ErrMetadataValidation, Message: "metadata validation failed"}
	ChainCallError          = &GatewayError{Code: ErrChainCall, Message: "chain call failed"}
	InvalidRecordError      = &GatewayError{Code: ErrInvalidRecord, Message: "invalid payment record"}
	StoreError              = &GatewayError{Code: ErrStoreError, Message: "store error"}
	ConfigError             = &GatewayError{Code: ErrConfigError, Message: "configuration error"}
)

// Code extracts the GatewayError code from err, or "" if none is present.
func Code(err error) string {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// IsClientError reports whether err was caused by caller input rather than
// an internal failure.
func IsClientError(err error) bool {
	switch Code(err) {
	case ErrInvalidAddress, ErrInvalidAmount, ErrInvalidToken,
		ErrPaymentNotFound, ErrPaymentExpired, ErrPaymentNotPending:
		return true
	}
	return false
}
